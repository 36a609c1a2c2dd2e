// Package files inspects the BanVic source files on disk.
//
// Discovery reports which of the seven configured extracts exist, their size
// and modification time, and lists any other CSV or XLSX files in the data
// directory. It never reads file content; the dataprocessing loader does.
//
// Example usage:
//
//	discovery := files.NewDiscovery(cfg.Data)
//	if missing := discovery.Missing(); len(missing) > 0 {
//	    // not ready
//	}
package files
