// Package backup keeps copies of project files that skillkit is about to
// overwrite.
//
// Backups live inside the project they belong to:
//
//	<target>/.skillkit/backups/
//	└── {id}/
//	    ├── manifest.json
//	    └── {copied files...}
//
// The id is a UTC timestamp (20260123T100712), suffixed with a counter when
// two backups are taken in the same second. Every copied file is recorded in
// the manifest with its SHA256 hash and permission bits so that
// [Manager.Restore] can refuse to write back a damaged copy.
//
//	mgr := backup.NewManager("./my-api")
//	m, err := mgr.Backup([]string{"Dockerfile", "app/main.py"})
//	...
//	err = mgr.Restore(m.ID)
package backup
