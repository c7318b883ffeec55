package control

import "colonylink.ai/internal/sim/facade"

// recorder notes every mutating facade call a handler makes, plus the last
// notification it posted.
type recorder struct {
	facade.World
	rec *record
}

func (r *recorder) note(method string) { r.rec.calls = append(r.rec.calls, method) }

func (r *recorder) ExecuteRaid(req facade.IncidentRequest) bool {
	r.note("ExecuteRaid")
	return r.World.ExecuteRaid(req)
}

func (r *recorder) ExecuteSimpleIncident(name string) bool {
	r.note("ExecuteSimpleIncident")
	return r.World.ExecuteSimpleIncident(name)
}

func (r *recorder) TransitionWeather(id string) {
	r.note("TransitionWeather")
	r.World.TransitionWeather(id)
}

func (r *recorder) ResurrectAllCorpses() (int, bool) {
	r.note("ResurrectAllCorpses")
	return r.World.ResurrectAllCorpses()
}

func (r *recorder) ForceFlee() int {
	r.note("ForceFlee")
	return r.World.ForceFlee()
}

func (r *recorder) SpawnExplosion(at facade.GridLocation, radius float64, damageType string) {
	r.note("SpawnExplosion")
	r.World.SpawnExplosion(at, radius, damageType)
}

func (r *recorder) SpawnWandererColonist(customName *string, at facade.GridLocation) (facade.Pawn, bool) {
	r.note("SpawnWandererColonist")
	return r.World.SpawnWandererColonist(customName, at)
}

func (r *recorder) DropItemPods(itemID string, at facade.GridLocation) int {
	r.note("DropItemPods")
	return r.World.DropItemPods(itemID, at)
}

func (r *recorder) Notify(n facade.Notification) {
	r.note("Notify")
	r.rec.notification = &n
	r.World.Notify(n)
}
