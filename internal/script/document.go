package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undocore/internal/document"
)

// registerDocumentType installs the metatable backing document userdata.
func (r *Runtime) registerDocumentType() {
	mt := r.L.NewTypeMetatable(documentTypeName)
	r.L.SetField(mt, "__index", r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"text":    r.docText,
		"len":     r.docLen,
		"name":    r.docName,
		"replace": r.docReplace,
		"insert":  r.docInsert,
		"delete":  r.docDelete,
	}))
}

func (r *Runtime) newDocument(d *document.Document) *lua.LUserData {
	ud := r.L.NewUserData()
	ud.Value = d
	r.L.SetMetatable(ud, r.L.GetTypeMetatable(documentTypeName))
	return ud
}

func checkDocument(L *lua.LState) *document.Document {
	ud := L.CheckUserData(1)
	d, ok := ud.Value.(*document.Document)
	if !ok {
		L.ArgError(1, "document expected")
	}
	return d
}

func (r *Runtime) docText(L *lua.LState) int {
	L.Push(lua.LString(checkDocument(L).Text()))
	return 1
}

func (r *Runtime) docLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkDocument(L).Len()))
	return 1
}

func (r *Runtime) docName(L *lua.LState) int {
	L.Push(lua.LString(checkDocument(L).Name()))
	return 1
}

func (r *Runtime) docReplace(L *lua.LState) int {
	d := checkDocument(L)
	rng := document.Range{Start: L.CheckInt(2), End: L.CheckInt(3)}
	r.apply(L, d, rng, L.CheckString(4))
	return 0
}

func (r *Runtime) docInsert(L *lua.LState) int {
	d := checkDocument(L)
	pos := L.CheckInt(2)
	r.apply(L, d, document.Range{Start: pos, End: pos}, L.CheckString(3))
	return 0
}

func (r *Runtime) docDelete(L *lua.LState) int {
	d := checkDocument(L)
	r.apply(L, d, document.Range{Start: L.CheckInt(2), End: L.CheckInt(3)}, "")
	return 0
}

func (r *Runtime) apply(L *lua.LState, d *document.Document, rng document.Range, text string) {
	if _, err := d.Replace(rng, text); err != nil {
		r.lastErr = err
		L.RaiseError("%s", err.Error())
	}
}
