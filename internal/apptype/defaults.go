package apptype

var mainHours = []Window{
	{Start: "09:00", End: "11:30", Interval: 10},
	{Start: "13:00", End: "15:00", Interval: 10},
}

// DefaultTypes returns the clinic's stock appointment types.
func DefaultTypes() []Type {
	return []Type{
		{
			Key:             SportsExam,
			Name:            "Športová prehliadka",
			Windows:         []Window{{Start: "07:00", End: "08:40", Interval: 20}},
			DailyCap:        5,
			DurationMinutes: 20,
			Price:           130,
			ColorID:         "11",
			Requirements: []string{
				"Nalačno (8 hodín pred vyšetrením)",
				"Jedlo a voda na po vyšetrení",
				"Športové oblečenie a uterák",
				"Platba v hotovosti (130€)",
			},
		},
		{
			Key:              InitialExam,
			Name:             "Vstupné vyšetrenie",
			Windows:          append([]Window(nil), mainHours...),
			DailyCap:         50,
			DurationMinutes:  30,
			InsuranceCovered: true,
			OrderNumbered:    true,
			ColorID:          "1",
			Requirements: []string{
				"Výmenný lístok (povinný)",
				"Predchádzajúce lekárske správy",
				"Kartička poistenca",
			},
		},
		{
			Key:              FollowUpExam,
			Name:             "Kontrolné vyšetrenie",
			Windows:          append([]Window(nil), mainHours...),
			DailyCap:         50,
			DurationMinutes:  30,
			InsuranceCovered: true,
			OrderNumbered:    true,
			ColorID:          "2",
			Requirements: []string{
				"Kartička poistenca",
				"Posledné výsledky a lekárske správy",
			},
		},
		{
			Key:              MedicalAids,
			Name:             "Zdravotnícke pomôcky",
			Windows:          append([]Window(nil), mainHours...),
			DailyCap:         1,
			DurationMinutes:  30,
			InsuranceCovered: true,
			OrderNumbered:    true,
			ColorID:          "3",
			Requirements: []string{
				"Lekárske správy",
				"Staré pomôcky na kontrolu",
				"Kartička poistenca",
			},
		},
		{
			Key:  Consultation,
			Name: "Konzultácia",
			Windows: []Window{
				{Start: "07:30", End: "09:00", Interval: 10},
				{Start: "15:00", End: "16:00", Interval: 10},
			},
			DailyCap:        20,
			DurationMinutes: 30,
			Price:           30,
			OrderNumbered:   true,
			ColorID:         "4",
			Requirements: []string{
				"Platba v hotovosti (30€)",
				"Lekárske dokumenty, ak sú k dispozícii",
			},
		},
	}
}

// DefaultCatalog builds the stock catalog. The stock types are valid, so
// construction cannot fail.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTypes()...)
	if err != nil {
		panic(err)
	}
	return c
}
