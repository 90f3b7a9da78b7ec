package registry

// builtins are the parks known without any registry file. They lack the API key,
// which is a secret provided by configuration.
var builtins = []Park{
	{
		ID:                "movieparkgermany",
		Name:              "Movie Park Germany",
		DestinationSlug:   "movieparkgermany",
		ParkSlug:          "movieparkgermanypark",
		Culture:           "de",
		FallbackCulture:   DefaultFallbackCulture,
		Timezone:          "Europe/Berlin",
		Latitude:          51.5973,
		Longitude:         6.8647,
		CalendarURL:       "https://www.movieparkgermany.de/en/oeffnungszeiten-und-preise/oeffnungszeiten",
		StayEstablishment: "mBv6",
		BaseURL:           DefaultBaseURL,
	},
	{
		ID:                "bobbejaanland",
		Name:              "Bobbejaanland",
		DestinationSlug:   "bobbejaanland",
		ParkSlug:          "bobbejaanlandspark",
		Culture:           "nl",
		FallbackCulture:   DefaultFallbackCulture,
		Timezone:          "Europe/Brussels",
		Latitude:          51.2021,
		Longitude:         4.8828,
		CalendarURL:       "https://www.bobbejaanland.be/openingsuren-en-prijzen/openingsuren",
		StayEstablishment: "mGvE",
		BaseURL:           DefaultBaseURL,
	},
}
