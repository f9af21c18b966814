// Package scenario drives an undo engine from scripted steps.
//
// A scenario is a YAML file naming documents, Lua scripts and a list of
// steps. Each step is one operation: open, group, undo, redo, invalidate,
// reload, close, show, history, confirm or expect.
//
//	name: typing
//	documents:
//	  - name: a.txt
//	    text: x
//	steps:
//	  - group:
//	      name: Type
//	      actions:
//	        - edit: {doc: a.txt, at: 1, text: "y"}
//	  - undo: a.txt
//	  - expect: {doc: a.txt, text: x}
//
// The REPL accepts the same operations as text lines; see ParseLine.
// A Runner executes steps and writes a transcript.
package scenario
