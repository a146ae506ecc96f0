// Package config loads and watches the vahanboard configuration file.
//
// Top-level sections:
//   - log_level - debug | info | warn | error
//   - server    - http_port, broadcast_interval, top_n, ui_dir, auth, snapshot.ttl
//   - refresh   - interval between source fetches
//   - sources[] - id, type (stub|prometheus|csv|http), endpoint, path, metric,
//     seed, auth, tls
//   - alerts    - rules (name, condition, severity, cooldown) and webhooks
//   - theme     - palette handed to the presentation layer
//
// Load(path) applies defaults before unmarshalling, then validates. A config
// with no sources gets one stub source so the dashboard always has data.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. A reload that fails to parse is
// logged and ignored.
package config
