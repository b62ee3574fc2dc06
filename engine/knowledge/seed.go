package knowledge

import "github.com/ClimateIQ/climateiq-mvp/engine/domain"

// SeedCorpus returns the built-in climate knowledge documents used to
// bootstrap an empty index. Sources mirror well-known public guidance so the
// engine can answer questions before any external documents are ingested.
func SeedCorpus() []domain.Document {
	return []domain.Document{
		{
			Content: "Mitigation of climate change requires rapid and deep reductions in " +
				"greenhouse gas emissions across all sectors. The largest near-term gains " +
				"come from the energy sector: replacing coal and gas generation with solar " +
				"and wind power, electrifying transport and heating, and improving energy " +
				"efficiency in buildings and industry.\n\n" +
				"Demand-side measures matter as much as supply. Shifting to plant-rich " +
				"diets, reducing food waste, choosing public transport, cycling, and " +
				"walking over private car travel, and extending the lifetime of products " +
				"through repair and reuse can deliver 40 to 70 percent of the reduction " +
				"potential in end-use sectors by 2050.\n\n" +
				"Carbon dioxide removal through afforestation and soil carbon management " +
				"complements but does not substitute for emission cuts. A mature tree " +
				"absorbs roughly 22 kilograms of carbon dioxide per year, so protecting " +
				"existing forests and planting new ones remains one of the most durable " +
				"household-scale contributions available.",
			Metadata: map[string]string{
				"source":   "IPCC_AR6_Mitigation",
				"category": "mitigation",
			},
		},
		{
			Content: "Household carbon footprints are dominated by transportation, home " +
				"energy, and diet. An average passenger vehicle emits about 404 grams of " +
				"carbon dioxide per mile, so replacing short car trips with cycling or " +
				"public transport yields immediate, measurable savings.\n\n" +
				"Home energy is the second lever. Switching incandescent bulbs to LED " +
				"lighting cuts lighting energy use by up to 90 percent, and a single " +
				"replaced bulb avoids roughly half a kilogram of carbon dioxide per day " +
				"of typical use. Lowering the thermostat by a few degrees in winter, " +
				"sealing drafts, and enrolling in a green electricity tariff each reduce " +
				"emissions further. Grid electricity averages around 0.4 kilograms of " +
				"carbon dioxide per kilowatt-hour, so every kilowatt-hour of solar " +
				"generation or avoided consumption counts.\n\n" +
				"Waste choices close the loop: recycling a kilogram of mixed materials " +
				"avoids about 1.5 kilograms of carbon dioxide, and composting food " +
				"scraps keeps methane-producing waste out of landfills.",
			Metadata: map[string]string{
				"source":   "EPA_Carbon_Calculator",
				"category": "household",
			},
		},
		{
			Content: "Sustainable consumption starts with food. Producing one kilogram of " +
				"beef emits an order of magnitude more greenhouse gas than the same " +
				"calories from legumes or grains; a single vegetarian meal in place of a " +
				"meat-based one avoids roughly 2.5 kilograms of carbon dioxide " +
				"equivalent.\n\n" +
				"Buying local and seasonal produce trims transport and refrigeration " +
				"emissions, and planning meals to cut food waste multiplies the benefit, " +
				"since wasted food carries the full footprint of its production. " +
				"Businesses and households alike are encouraged to measure, reduce, and " +
				"report: what gets measured gets managed.\n\n" +
				"Beyond food, durable goods deserve the same scrutiny. Choosing reusable " +
				"bags, repairing electronics instead of replacing them, and recycling " +
				"devices at end of life recovers scarce metals and avoids about 2 " +
				"kilograms of carbon dioxide per kilogram of e-waste diverted.",
			Metadata: map[string]string{
				"source":   "UN_Global_Compact",
				"category": "consumption",
			},
		},
		{
			Content: "Clean energy investment now exceeds fossil fuel investment globally, " +
				"driven by the collapsing cost of solar photovoltaics and onshore wind. " +
				"Rooftop solar pays back its embodied carbon within one to three years " +
				"and then displaces grid electricity at roughly 0.4 kilograms of carbon " +
				"dioxide per kilowatt-hour generated.\n\n" +
				"Electrification is the companion trend. Heat pumps deliver three to four " +
				"units of heat per unit of electricity, and electric vehicles charged on " +
				"a cleaning grid emit a fraction of the lifecycle carbon of combustion " +
				"cars. For households unable to install panels, green power purchase " +
				"tariffs channel demand to renewable generators.\n\n" +
				"Efficiency remains the cheapest fuel: smart thermostats, insulation, and " +
				"LED retrofits typically return their cost within two heating seasons " +
				"while cutting both bills and emissions.",
			Metadata: map[string]string{
				"source":   "IEA_Energy_Finance",
				"category": "energy",
			},
		},
		{
			Content: "Climate resilience is built locally. Communities reduce disaster risk " +
				"by conserving water, restoring vegetation, and preparing for heat waves " +
				"and floods before they arrive.\n\n" +
				"Water conservation is a daily practice: shorter showers, fixing leaks, " +
				"and capturing rainwater for gardens lower both water stress and the " +
				"energy spent pumping and treating supply. Every litre saved avoids a " +
				"small but real amount of emissions, and in drought-prone regions the " +
				"resilience benefit dwarfs the carbon one.\n\n" +
				"Urban trees do double duty, absorbing carbon while cooling streets by " +
				"several degrees during heat waves. Neighbourhood planting programs, " +
				"community composting, and shared repair workshops knit mitigation and " +
				"adaptation together at the scale where individual actions add up.",
			Metadata: map[string]string{
				"source":   "UNDRR_Resilience_Guide",
				"category": "resilience",
			},
		},
	}
}
