// Package secret reads configuration maps from the store's KV engine.
//
// It provides:
//   - Fetching a KV path, optionally pinned to a version (see Service)
//   - Checking a final configuration against required keys (see Validate)
//   - Strict environment expansion for settings files (see ExpandEnvStrict)
//
// KV reads go to /kv/data/services/{path}. The store wraps the payload twice:
//
//	{"data": {"data": {"DB_HOST": "db.internal"}, "metadata": {...}}}
//
// Both levels must be present or the read fails with errdefs.ErrStore.
package secret
