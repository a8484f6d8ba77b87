package transform

// standardRule rewrites one product identity. A row matches by exact id or
// by trimmed, uppercased name; the row then takes the canonical id and name.
type standardRule struct {
	fromIDs   []string
	fromNames []string
	toID      string
	toName    string
}

func (r standardRule) matches(id, upperName string) bool {
	for _, f := range r.fromIDs {
		if id == f {
			return true
		}
	}
	for _, n := range r.fromNames {
		if upperName == n {
			return true
		}
	}
	return false
}

// Products renamed or re-SKUed at the register over the years. Collected
// from the back catalog; matched against both the old ids and old names
// because some registers kept exporting the retired identity.
var standardizationRules = []standardRule{
	{
		fromIDs:   []string{"FDS-2017-0024-W-DCS-BLMW"},
		fromNames: []string{"DOUBLE CHOCOLATE AND STRAWBERRIES"},
		toID:      "2024waffles4",
		toName:    "DOUBLE CHOCS AND STRAWBERRIES",
	},
	{
		fromIDs:   []string{"FDS-2017-0020-W-BN2-BLMW"},
		fromNames: []string{"BANANA NUTELLA WAFFLES"},
		toID:      "2024waffles2",
		toName:    "BANANA NUTELLA",
	},
	{
		fromIDs:   []string{"FDS-2017-0028-S-BCT-BLMW"},
		fromNames: []string{"BACON, COLESLAW AND TOMATO"},
		toID:      "2024Breads7",
		toName:    "CLASSIC BACON COLESLAW N TOMATO",
	},
	{
		fromIDs:   []string{"FDS-2017-0029-S-TCS-BLMW"},
		fromNames: []string{"THE CLUB SANDWICH"},
		toID:      "2024breads",
		toName:    "THE CKUB",
	},
	{
		fromIDs:   []string{"DKS-2018-0034-COOL-PEACH-16-BLMW"},
		fromNames: []string{"PEACH"},
		toID:      "DKS-2018-0025-SH-CAMPCH-16-BLMW",
		toName:    "CAMOMILE PEACH",
	},
	{
		fromIDs:   []string{"DKS-2017-0025-SH-16-BLMW"},
		fromNames: []string{"CHAMOMILE PEACH"},
		toID:      "DKS-2018-0020-FRAPPE-PCHLUCK-16-BLMW",
		toName:    "PEACHIEST LUCK",
	},
	{
		fromIDs:   []string{"FDS-2018-0001-GARLICBRD--BLMW"},
		fromNames: []string{"GARLIC BREAD EXTRA"},
		toID:      "2024BREads9",
		toName:    "GALIC BREAD ALA CARTE",
	},
	{
		fromIDs:   []string{"FDS-2018-0001-BEF-KOR-BLMW"},
		fromNames: []string{"KOREAN BEEF BBQ"},
		toID:      "2024lrgplates13",
		toName:    "K POP BBQ BEEF",
	},
	{
		fromIDs:   []string{"2024FDPIZSCREAM"},
		fromNames: []string{"SPINACH & CREAM PIZZA"},
		toID:      "2024pizza3",
		toName:    "SPINACH N CREAM PIZZA",
	},
	{
		fromIDs:   []string{"2024PromobundleChix steak"},
		fromNames: []string{"CHICKEN STEAK PROMO BUNDLE"},
		toID:      "2024PromoChixsteak",
		toName:    "CHICKEN STEAK PROMO",
	},
	{
		fromIDs:   []string{"FDS-2017-0030-PBB-LONG-BLMW"},
		fromNames: []string{"LONGANISA PBB"},
		toID:      "2024FilBfast4",
		toName:    "FIL BFAST LONGGANISA",
	},
	{
		fromIDs:   []string{"FDS-2018-0001-MOJOS-BLMW"},
		fromNames: []string{"MOJOS"},
		toID:      "2024smlplates2",
		toName:    "MOJOJOJOS",
	},
	{
		fromIDs:   []string{"FFDS-2020-VM-DANGGIT-BLMW", "FDS-2017-0030-PBB-DNGGT-BLMW"},
		fromNames: []string{"DANGGIT", "DANGGIT PBB"},
		toID:      "2024FilBFast3",
		toName:    "FIL BREAKFAST DANGGIT",
	},
	{
		fromIDs:   []string{"FDSS-2018-001-EGG-EXT-BLMW"},
		fromNames: []string{"EXTRA EGG"},
		toID:      "ING-EGG",
		toName:    "EGG",
	},
	{
		fromIDs: []string{"FDS-2017-009-SPAMFRT-BLMW", "FDS-2017-009-SPAMRI-BLMW"},
		fromNames: []string{
			"SPAM, FRENCH TOAST, EGGS AND HASH BROWN",
			"SPAM, RICE, EGGS, HASH BROWN",
			"SPAM, WAFFLES, EGGS, HASH BROWN",
		},
		toID:   "FDS-2017-0010-ADB-S-BLMW",
		toName: "SPAM WITH RICE OR WAFFLES OR FRENCH TOAST",
	},
	{
		fromIDs: []string{"FDS-2017-009-HUNGFRT-BLMW", "FDS-2017-009-HUNGRI-BLMW"},
		fromNames: []string{
			"HUNGARIAN SAUSAGE, FRENCH TOAST, EGGS AND HASH BROWN",
			"HUNGARIAN SAUSAGE, RICE, EGGS, HASH BROWN",
			"HUNGARIAN SAUSAGE, WAFFLES, EGGS AND HASH BROWN",
		},
		toID:   "FDS-2017-0011-ADB-HS-BLMW",
		toName: "HUNGARIAN SAUSAGE WITH RICE OR WAFFLES OR FRENCH TOAST",
	},
	{
		fromIDs: []string{"FDS-2017-009-GERFRT-BLMW", "FDS-2017-009-GERRI-BLMW", "FDS-2017-009-GERWAF-BLMW"},
		fromNames: []string{
			"GERMAN FRANKS, FRENCH TOAST, EGGS AND HASH BROWN",
			"GERMAN FRANKS, RICE, EGGS AND HASH BROWN",
			"GERMAN FRANKS, WAFFLES, EGGS AND HASH BROWN",
		},
		toID:   "FDS-2017-0012-ADB-GF-BLMW",
		toName: "GERMAN FRANKS WITH RICE OR WAFFLES OR FRENCH TOAST",
	},
	{
		fromIDs: []string{"FDS-2017-009-CBFRT-BLMW", "FDS-2017-009-CBRI-BLMW", "FDS-2017-009-CBWAF-BLMW"},
		fromNames: []string{
			"CORNED BEEF, FRENCH TOAST, EGGS AND HASH BROWN",
			"CORNED BEEF, RICE, EGGS, AND HASH BROWN",
			"CORNED BEEF, WAFFLES, EGGS, HASH BROWN",
		},
		toID:   "FDS-2017-0013-ADB-CB-BLMW",
		toName: "CORNED BEEF WITH RICE OR WAFFLES OR FRENCH TOAST",
	},
	{
		fromIDs: []string{"FDS-2017-009-BAFRT-BLMW", "FDS-2017-009-BARI-BLMW", "FDS-2017-009-BAWA-BLMW"},
		fromNames: []string{
			"BACON, FRENCH TOAST, EGGS, HASH BROWN",
			"BACON, RICE, EGGS AND HASH BROWN",
			"BACON, WAFFLES, EGGS, HASH BROWN",
		},
		toID:   "FDS-2017-009-ADB-B-BLMW",
		toName: "BACON WITH RICE OR WAFFLES OR FRENCH TOAST",
	},
}
