// Package config loads undocore settings.
//
// Settings come from, in increasing precedence: built-in defaults, a TOML or
// YAML file chosen by extension, and UNDOCORE_* environment variables. The
// default file is $XDG_CONFIG_HOME/undocore/config.toml. A missing file is
// not an error.
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//
// Watcher reloads the file when it changes on disk.
package config
