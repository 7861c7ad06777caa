package system

import (
	"time"

	"github.com/l1jgo/poolmgr/internal/core/event"
	coresys "github.com/l1jgo/poolmgr/internal/core/system"
	"github.com/l1jgo/poolmgr/internal/world"
	"go.uber.org/zap"
)

// SceneSystem flushes the scene's destroy queue at tick end and unloads the
// level when a round ends. Phase 4 (Cleanup).
type SceneSystem struct {
	scene *world.Scene
	sub   *event.Subscription
	log   *zap.Logger
}

func NewSceneSystem(scene *world.Scene, bus *event.Bus, log *zap.Logger) *SceneSystem {
	s := &SceneSystem{scene: scene, log: log}
	s.sub = event.Subscribe(bus, func(event.RoundEnded) {
		s.scene.Unload()
	})
	return s
}

func (s *SceneSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *SceneSystem) Update(_ time.Duration) {
	if n := s.scene.Flush(); n > 0 {
		s.log.Debug("scene entities destroyed",
			zap.Int("destroyed", n),
			zap.Int("remaining", s.scene.Count()),
		)
	}
}

// Close drops the RoundEnded subscription.
func (s *SceneSystem) Close() {
	s.sub.Unsubscribe()
}
