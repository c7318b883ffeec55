package world

// WeatherIDs returns the catalog's weather ids in catalog order.
func (w *World) WeatherIDs() []string {
	return append([]string(nil), w.catalogs.Weather.IDs...)
}

func (w *World) HasWeather(id string) bool {
	_, ok := w.catalogs.Weather.ByID[id]
	return ok
}

// TransitionWeather switches to id. Unknown ids are ignored.
func (w *World) TransitionWeather(id string) {
	if !w.HasWeather(id) {
		return
	}
	w.weather = id
	w.weatherSinceTick = w.tick.Load()
}

func (w *World) Weather() string { return w.weather }
