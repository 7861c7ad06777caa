package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/poolmgr/internal/pool"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running pool lifecycle scripts.
// Single-goroutine access only (game loop).
//
// Scripts may define any of these globals; missing ones are skipped:
//
//	on_create(kind, id)   -- a new instance was built from its template
//	on_spawn(kind, id)    -- an instance was handed out
//	on_despawn(kind, id)  -- an instance went back to its pool
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("log_info", vm.NewFunction(e.luaLogInfo))

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load pool scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) luaLogInfo(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) OnCreate(inst *pool.Instance)  { e.call("on_create", inst) }
func (e *Engine) OnSpawn(inst *pool.Instance)   { e.call("on_spawn", inst) }
func (e *Engine) OnDespawn(inst *pool.Instance) { e.call("on_despawn", inst) }

// call invokes a hook in protected mode. Script errors are logged and never
// fail the pool operation.
func (e *Engine) call(name string, inst *pool.Instance) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(inst.Kind()), lua.LNumber(inst.ID())); err != nil {
		e.log.Warn("lua hook failed",
			zap.String("hook", name),
			zap.String("kind", inst.Kind()),
			zap.Error(err),
		)
	}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}
