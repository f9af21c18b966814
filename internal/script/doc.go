// Package script runs Lua-defined reversible actions.
//
// A script is a Lua chunk returning a table with redo and undo functions.
// Both receive the target document and an argument table:
//
//	return {
//	  redo = function(doc, args)
//	    doc:insert(0, args.open)
//	    doc:insert(doc:len(), args.close)
//	  end,
//	  undo = function(doc, args)
//	    doc:delete(doc:len() - #args.close, doc:len())
//	    doc:delete(0, #args.open)
//	  end,
//	}
//
// The document userdata exposes text, len, name, replace, insert and delete.
// Offsets are zero-based byte offsets; ranges are half-open.
//
// Scripts execute in a sandboxed gopher-lua state. Only the base, table,
// string and math libraries are opened; dofile, loadfile, load, loadstring
// and require are removed, and print goes to the runtime's logger. Every
// call is bounded by the runtime's timeout.
//
// A Runtime is safe for concurrent use; calls into Lua are serialized.
package script
