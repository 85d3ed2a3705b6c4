package entity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/vec"
)

func TestGainExperience_MultiLevel(t *testing.T) {
	p := NewPlayer("p1", "Тест", 0, 0)
	require.Equal(t, 1, p.Player.Level)
	require.Equal(t, 100, p.Player.ExperienceNeeded)

	levels := p.GainExperience(250)

	assert.Equal(t, 2, levels)
	assert.Equal(t, 3, p.Player.Level)
	assert.Equal(t, 225, p.Player.ExperienceNeeded, "100 × 1.5 × 1.5")
	assert.Equal(t, 0, p.Player.Experience)
}

func TestLevelUp_ScalesStatsAndHeals(t *testing.T) {
	p := NewPlayer("p1", "", 0, 0)
	p.Health = 1

	p.GainExperience(100)

	assert.Equal(t, 110.0, p.MaxHealth)
	assert.Equal(t, p.MaxHealth, p.Health, "повышение уровня полностью лечит")
	assert.Equal(t, 210.0, p.Body.MaxSpeed)
	assert.InDelta(t, 105.0, p.Body.AccelRate, 1e-9)
	assert.Equal(t, 52.0, p.Player.AttackRange)
	// Урон оружия добавляется поверх базового
	assert.Equal(t, 11.0+combat.DefaultWeapon().Damage, p.Player.Damage)
}

func TestEquip_ReappliesWeaponModifiers(t *testing.T) {
	p := NewPlayer("p1", "", 0, 0)
	sword, ok := combat.WeaponByName("Sword")
	require.True(t, ok)

	p.Equip(sword)
	assert.Equal(t, 50.0, p.Player.Damage)
	assert.Equal(t, 120.0, p.MeleeReach())
	assert.InDelta(t, 0.4, p.Cooldown(), 1e-9)
}

func TestTakeDamage_KillReportedOnce(t *testing.T) {
	p := NewPlayer("p1", "", 0, 0)
	assert.False(t, p.TakeDamage(50))
	assert.True(t, p.TakeDamage(60))
	assert.False(t, p.TakeDamage(10), "мёртвую сущность нельзя убить повторно")
	assert.False(t, p.Alive())
}

func TestNewMonster_RangesScaledByDifficulty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		m := NewMonster(0, 0, DifficultyHard, rng)
		assert.GreaterOrEqual(t, m.Body.Radius, 15.0)
		assert.LessOrEqual(t, m.Body.Radius, 25.0)
		assert.GreaterOrEqual(t, m.MaxHealth, 30*1.5)
		assert.LessOrEqual(t, m.MaxHealth, 80*1.5)
		assert.LessOrEqual(t, m.Body.MaxSpeed, 150*1.15+1e-9)
		assert.Equal(t, 15.0, m.Monster.Damage)
		assert.GreaterOrEqual(t, m.Monster.AttackCooldown, 1.5)
		assert.Less(t, m.Monster.AttackCooldown, 3.0)
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("Medium")
	require.NoError(t, err)
	assert.Equal(t, DifficultyBalanced, d)

	_, err = ParseDifficulty("nightmare")
	assert.Error(t, err)
	assert.Equal(t, 0.6, DifficultyHard.Tier().SpawnRate)
}

func TestMonsterThink_AttacksOnFixedCooldownInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewMonster(0, 0, DifficultyBalanced, rng)
	m.Monster.AttackCooldown = 1.0
	m.Monster.AttackTimer = 1.0
	target := vec.Vec2{X: 100}

	attacks := 0
	dt := 0.25
	// Атаки на 4, 8 и 12 тиках
	for i := 0; i < 14; i++ {
		if m.Think(dt, target, true, rng) {
			attacks++
		}
		m.Body.Acc = vec.Vec2{}
	}
	assert.Equal(t, 3, attacks)
	assert.True(t, m.Monster.Direction.IsFinite())

	// Вне дальности атаки не происходит
	far := NewMonster(0, 0, DifficultyBalanced, rng)
	far.Monster.AttackTimer = 0
	assert.False(t, far.Think(dt, vec.Vec2{X: 1000}, true, rng))
}

func TestMonsterThink_TargetOnTopStaysFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := NewMonster(5, 5, DifficultyEasy, rng)
	m.Think(0.016, vec.Vec2{X: 5, Y: 5}, true, rng)
	assert.True(t, m.Body.Acc.IsFinite())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Add(NewPlayer("a", "", 0, 0))
	b := r.Add(NewMonster(10, 0, DifficultyEasy, rand.New(rand.NewSource(1))))

	assert.True(t, r.Remove(b))
	assert.False(t, r.Remove(b))
	assert.False(t, r.Has(b))
	assert.True(t, r.Has(a))
	assert.Len(t, r.All(), 1)
}

func TestRegistry_OrderAndQueries(t *testing.T) {
	r := NewRegistry()
	p := NewPlayer("hero", "", 0, 0)
	r.Add(p)
	for i := 0; i < 3; i++ {
		st := combat.NewProjectile(combat.DefaultWeapon(), p.ID, 1, 10)
		r.Add(NewProjectile(vec.Vec2{X: float64(i)}, vec.Vec2{X: 1}, st))
	}

	all := r.All()
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "обход в порядке добавления")
	}
	assert.Len(t, r.ProjectilesOf(p.ID), 3)
	assert.Equal(t, 3, r.Count(KindProjectile))

	found, ok := r.FindByNetID("hero")
	require.True(t, ok)
	assert.Same(t, p, found)

	// Игрок в начале координат и два ближайших снаряда
	assert.Len(t, r.InRange(vec.Vec2{}, 1.5), 3)
}

func TestRegistry_PruneRemovesDead(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewSource(1))
	m := NewMonster(0, 0, DifficultyEasy, rng)
	r.Add(m)
	m.TakeDamage(1e6)

	removed := r.Prune()
	require.Len(t, removed, 1)
	assert.False(t, m.Active)
	assert.Empty(t, r.Prune())
}

func TestPeer_IgnoresLocalPhysicsPush(t *testing.T) {
	peer := NewPeer("remote", PeerState{X: 1, Y: 2, Health: 50, MaxHealth: 100, Level: 2, Weapon: "Bow"}, 0)
	peer.Push(vec.Vec2{X: 100})
	assert.Equal(t, vec.Vec2{}, peer.Body.Vel)
	assert.True(t, peer.Alive())

	peer.ApplyPeerState(PeerState{X: 3, Y: 4, Health: 0, MaxHealth: 100, Dead: true}, 1)
	assert.False(t, peer.Alive())
	assert.Equal(t, "remote", peer.NetID())
}

func TestRestore_MatchesEarnedLevels(t *testing.T) {
	earned := NewPlayer("p1", "", 0, 0)
	earned.GainExperience(250)
	earned.GainExperience(40)

	sniper, ok := combat.WeaponByName("Sniper")
	require.True(t, ok)
	restored := NewPlayer("p1", "", 0, 0)
	restored.Restore(3, 40, sniper)

	assert.Equal(t, 3, restored.Player.Level)
	assert.Equal(t, 40, restored.Player.Experience)
	assert.Equal(t, earned.Player.ExperienceNeeded, restored.Player.ExperienceNeeded)
	assert.Equal(t, earned.MaxHealth, restored.MaxHealth)
	assert.Equal(t, restored.MaxHealth, restored.Health)
	assert.Equal(t, "Sniper", restored.Player.Weapon.Name)
}

func TestBaseDamageAt_MatchesLevelUps(t *testing.T) {
	assert.Equal(t, PlayerBaseDamage, BaseDamageAt(1))
	assert.Equal(t, PlayerBaseDamage, BaseDamageAt(0))
	assert.Equal(t, 14, BaseDamageAt(5))

	p := NewPlayer("p1", "Тест", 0, 0)
	for lvl := 2; lvl <= 8; lvl++ {
		p.GainExperience(p.Player.ExperienceNeeded)
		require.Equal(t, lvl, p.Player.Level)
		assert.Equal(t, p.Player.BaseDamage, BaseDamageAt(lvl), "уровень %d", lvl)
	}
}
