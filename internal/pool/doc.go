// Package pool recycles expensive game entities per kind instead of building
// and destroying them.
//
//	mgr := pool.New(pool.WithLogger(log))
//	if err := mgr.Initialize(ctx, catalog, warmup); err != nil {
//	    return err
//	}
//	mgr.Start(bus) // DespawnAll on event.RoundEnded
//	defer mgr.Close()
//
//	bolt, err := mgr.Spawn("ElectricTouchBolt")
//	...
//	mgr.Despawn(bolt)
//
// A kind grows only when its spare stack is empty; spares are reused most
// recently released first. Despawn is idempotent.
package pool
