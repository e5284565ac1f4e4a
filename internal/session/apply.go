package session

import (
	"github.com/OCAP2/demo/internal/event"
	"github.com/OCAP2/demo/internal/world"
	"github.com/OCAP2/demo/pkg/core"
)

// applyLocked replays one decoded event against the world. Events that
// reference an object the remap table cannot resolve are skipped.
func (c *Controller) applyLocked(s *session, ev event.Event) {
	w := c.deps.World
	switch e := ev.(type) {
	case *event.ObjectChanged:
		id, ok := c.resolve(s, ev, e.Object)
		if !ok {
			return
		}
		w.Move(id, e.Room, e.Pos, e.Orient)
		if e.HasFlags {
			o, ok := w.Object(id)
			if !ok || !o.Type.HasPlayerFlags() {
				return
			}
			if !validSlot(w, int(o.InfoID)) {
				c.skipLocked(s, ev)
				return
			}
			w.SetFlags(int(o.InfoID), e.Flags)
		}

	case *event.ObjectCreated:
		if !e.Type.Creatable() {
			return
		}
		spawn := world.Spawn{
			Type:   e.Type,
			InfoID: s.xlate.Translate(e.Type, e.InfoID),
			Room:   e.Room,
			Pos:    e.Pos,
			Orient: e.Orient,
			Parent: e.Parent,
		}
		id, err := w.Create(spawn)
		if err != nil {
			c.logger.Warn("Failed to recreate object", "object", e.Object, "type", e.Type, "error", err)
			c.skipLocked(s, ev)
			return
		}
		if err := c.table.Bind(e.Object, id); err != nil {
			c.logger.Warn("Failed to bind recreated object", "object", e.Object, "error", err)
		}

	case *event.WeaponFire:
		src, ok := c.resolve(s, ev, e.Source)
		if !ok {
			return
		}
		weapon, ok := w.MatchWeapon(e.Checksum)
		if !ok {
			c.logger.Debug("Unknown weapon checksum", "checksum", e.Checksum)
			c.skipLocked(s, ev)
			return
		}
		proj, err := w.Fire(src, weapon, e.Pos, e.Dir, e.Gun)
		if err != nil {
			c.logger.Warn("Failed to fire weapon", "source", src, "error", err)
			return
		}
		if err := c.table.Bind(e.Projectile, proj); err != nil {
			c.logger.Warn("Failed to bind projectile", "object", e.Projectile, "error", err)
		}

	case *event.CollidePlayer:
		c.collideLocked(s, ev, e.Collision, true)
	case *event.CollideGeneric:
		c.collideLocked(s, ev, e.Collision, false)

	case *event.Attach:
		parent, ok := c.resolve(s, ev, e.Parent)
		if !ok {
			return
		}
		child, ok := c.resolve(s, ev, e.Child)
		if !ok {
			return
		}
		if err := w.Attach(parent, e.ParentPoint, child, e.ChildPoint, e.Aligned); err != nil {
			c.logger.Debug("Attach failed", "parent", parent, "child", child, "error", err)
		}

	case *event.AttachRadius:
		parent, ok := c.resolve(s, ev, e.Parent)
		if !ok {
			return
		}
		child, ok := c.resolve(s, ev, e.Child)
		if !ok {
			return
		}
		if err := w.AttachRadius(parent, e.ParentPoint, child, e.Radius); err != nil {
			c.logger.Debug("Attach failed", "parent", parent, "child", child, "error", err)
		}

	case *event.Unattach:
		child, ok := c.resolve(s, ev, e.Child)
		if !ok {
			return
		}
		if err := w.Unattach(child); err != nil {
			c.logger.Debug("Unattach failed", "child", child, "error", err)
		}

	case *event.KillObject:
		victim, ok := c.resolve(s, ev, e.Victim)
		if !ok {
			return
		}
		o, ok := w.Object(victim)
		if !ok || !(o.Type.IsGeneric() || o.Type == core.ObjDoor) {
			c.skipLocked(s, ev)
			return
		}
		info := e.KillInfo
		info.Killer, _ = c.table.Resolve(e.Killer)
		w.SeedRandom(e.Seed)
		w.Kill(victim, info)

	case *event.PlayerDeath:
		id, ok := c.resolve(s, ev, e.Object)
		if !ok {
			return
		}
		w.KillPlayer(id, e.Melee, e.Fate)

	case *event.AnimUpdate:
		if o, ok := c.object(s, ev, e.Object); ok {
			o.Anim = e.AnimState
		}
	case *event.TurretUpdate:
		if o, ok := c.object(s, ev, e.Object); ok {
			o.Turret = e.TurretState
		}
	case *event.WeaponFireFlag:
		if o, ok := c.object(s, ev, e.Object); ok {
			o.WeaponFireFlags = e.Flags
		}
	case *event.ObjectLifeLeft:
		if o, ok := c.object(s, ev, e.Object); ok {
			if e.Uses {
				o.Flags |= core.ObjFlagUsesLifeLeft
				o.LifeLeft = e.LifeLeft
			} else {
				o.Flags &^= core.ObjFlagUsesLifeLeft
			}
		}

	case *event.SetObjectDead:
		id, ok := c.resolve(s, ev, e.Object)
		if !ok {
			return
		}
		w.SetDead(id)
		c.table.Unbind(e.Object)

	case *event.PlayerInfo:
		if !validSlot(w, w.LocalSlot()) {
			c.skipLocked(s, ev)
			return
		}
		w.SetInfo(w.LocalSlot(), e.PlayerInfo)
	case *event.PlayerBalls:
		if !validSlot(w, int(e.Slot)) {
			c.skipLocked(s, ev)
			return
		}
		w.SetBalls(int(e.Slot), e.BallState)
	case *event.PlayerTypeChange:
		piggy := core.NoObject
		if e.Mode == core.ObserverPiggyback {
			piggy, _ = c.table.Resolve(uint16(e.Piggyback))
		}
		w.ChangeType(e.PlayerTypeChange, piggy)

	case *event.HUDMessage:
		c.deps.Presentation.HUDMessage(e.Color, e.Blink, e.Text)
	case *event.PersistentHUD:
		c.deps.Presentation.PersistentHUDMessage(e.PersistentMessage)
	case *event.Sound2D:
		c.deps.Presentation.Sound2D(e.Sound, e.Volume)
	case *event.Sound3D:
		id, ok := c.resolve(s, ev, e.Object)
		if !ok {
			return
		}
		c.deps.Presentation.Sound3D(id, e.Sound, e.Volume)

	case *event.Cinematics:
		if c.deps.Passthrough != nil {
			c.deps.Passthrough.Cinematics(e.Data)
		}
	case *event.MultiSafe:
		if c.deps.Passthrough != nil {
			c.deps.Passthrough.MultiSafe(e.Data)
		}
	case *event.Powerup:
		if c.deps.Passthrough != nil {
			c.deps.Passthrough.Powerup(e.Data)
		}
	}
}

func (c *Controller) collideLocked(s *session, ev event.Event, e event.Collision, player bool) {
	target, ok := c.resolve(s, ev, e.Target)
	if !ok {
		return
	}
	weapon, ok := c.resolve(s, ev, e.Weapon)
	if !ok {
		return
	}
	c.deps.World.Collide(target, weapon, e.Point, e.Normal, e.Reverse, player)
}

// validSlot reports whether slot names a player of w. Slots come from
// stream and snapshot data and are untrusted.
func validSlot(w world.World, slot int) bool {
	return slot >= 0 && slot < w.MaxPlayers()
}

// resolve maps a recorded id to the live one, counting a skip on failure.
func (c *Controller) resolve(s *session, ev event.Event, old core.ObjectID) (core.ObjectID, bool) {
	id, ok := c.table.Resolve(old)
	if !ok {
		c.logger.Debug("Skipping event for unbound object", "opcode", ev.Opcode(), "object", old)
		c.skipLocked(s, ev)
	}
	return id, ok
}

func (c *Controller) object(s *session, ev event.Event, old core.ObjectID) (*world.Object, bool) {
	id, ok := c.resolve(s, ev, old)
	if !ok {
		return nil, false
	}
	o, ok := c.deps.World.Object(id)
	if !ok {
		c.skipLocked(s, ev)
	}
	return o, ok
}

func (c *Controller) skipLocked(s *session, ev event.Event) {
	s.skipped++
	c.metrics.event(c.metrics.skipped, ev.Opcode().String())
}
