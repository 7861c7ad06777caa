package pool

import (
	"context"
	"errors"
)

type fakeObject struct {
	kind     string
	active   bool
	detached int
	parent   string
}

func (o *fakeObject) SetActive(active bool) { o.active = active }

func (o *fakeObject) Detach() {
	o.parent = ""
	o.detached++
}

type fakeTemplate struct {
	kind  string
	built int
	err   error
	limit int // fail once this many objects were built; 0 means never
	objs  []*fakeObject
}

func (t *fakeTemplate) Instantiate() (Object, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.limit > 0 && t.built >= t.limit {
		return nil, errBoom
	}
	t.built++
	obj := &fakeObject{kind: t.kind}
	t.objs = append(t.objs, obj)
	return obj, nil
}

func catalogOf(kinds ...string) (Catalog, map[string]*fakeTemplate) {
	templates := make(map[string]*fakeTemplate, len(kinds))
	entries := make([]CatalogEntry, 0, len(kinds))
	for _, k := range kinds {
		tpl := &fakeTemplate{kind: k}
		templates[k] = tpl
		entries = append(entries, CatalogEntry{Kind: k, Template: tpl})
	}
	return CatalogFunc(func(context.Context) ([]CatalogEntry, error) {
		return entries, nil
	}), templates
}

var errBoom = errors.New("boom")

type recordingHooks struct {
	events []string
}

func (h *recordingHooks) OnCreate(inst *Instance)  { h.events = append(h.events, "create:"+inst.Kind()) }
func (h *recordingHooks) OnSpawn(inst *Instance)   { h.events = append(h.events, "spawn:"+inst.Kind()) }
func (h *recordingHooks) OnDespawn(inst *Instance) { h.events = append(h.events, "despawn:"+inst.Kind()) }
