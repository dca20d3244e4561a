package diagnosis

import "math/rand"

var (
	physicianFirstNames = []string{
		"James", "Mary", "Robert", "Patricia", "Michael", "Jennifer",
		"David", "Elizabeth", "Sarah", "Thomas", "Laura", "Daniel",
		"Rachel", "Andrew", "Katherine", "Steven", "Christine", "Paul",
	}

	physicianLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Garcia", "Miller",
		"Davis", "Martinez", "Wilson", "Anderson", "Taylor", "Moore",
		"Lee", "Thompson", "White", "Harris", "Clark", "Lewis",
		"Walker", "Young", "King", "Wright", "Nguyen", "Hill",
	}
)

// randomPhysician synthesizes the reviewing physician attribution the
// analysis service attaches to completed reports.
func randomPhysician(rng *rand.Rand) string {
	first := physicianFirstNames[rng.Intn(len(physicianFirstNames))]
	last := physicianLastNames[rng.Intn(len(physicianLastNames))]
	return "Dr. " + first + " " + last
}
