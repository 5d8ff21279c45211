package section

// Canonical layouts of the main article types. Titles follow the article
// skeletons used on it.wikivoyage.
var (
	CityPolicy = Policy{
		Name:  "città",
		Level: 2,
		Sections: []string{
			"Da sapere",
			"Come orientarsi",
			"Come arrivare",
			"Come spostarsi",
			"Cosa vedere",
			"Eventi e feste",
			"Cosa fare",
			"Acquisti",
			"Divertimenti",
			"Dove mangiare",
			"Dove alloggiare",
			"Sicurezza",
			"Come restare in contatto",
			"Nei dintorni",
			"Altri progetti",
		},
		Subsections: map[string][]string{
			"Da sapere":       {"Cenni geografici", "Quando andare", "Cenni storici"},
			"Come orientarsi": {"Quartieri"},
			"Come arrivare":   {"In aereo", "In auto", "In treno", "In autobus"},
			"Dove mangiare":   {"Prezzi modici", "Prezzi medi", "Prezzi elevati"},
			"Dove alloggiare": {"Prezzi modici", "Prezzi medi", "Prezzi elevati"},
		},
	}

	AirportPolicy = Policy{
		Name:  "aeroporto",
		Level: 2,
		Sections: []string{
			"Da sapere",
			"Voli",
			"Come arrivare",
			"Come spostarsi",
			"Cosa fare",
			"Acquisti",
			"Dove mangiare",
			"Dove alloggiare",
			"Come restare in contatto",
			"Nei dintorni",
			"Informazioni utili",
		},
	}
)

// Policies indexes the built-in layouts by name.
var Policies = map[string]Policy{
	CityPolicy.Name:    CityPolicy,
	AirportPolicy.Name: AirportPolicy,
}
