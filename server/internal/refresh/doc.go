// Package refresh polls every configured registration source on a fixed
// schedule, caches fresh datasets in the store, and feeds each dataset's
// headline to the alert engine.
package refresh
