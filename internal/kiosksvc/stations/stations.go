package stations

// Catalog of the RailGo line. Ids are 1-based and stable; the ledger stores
// ids, names are display-only.

type Destination struct {
	Id   int
	Name string
}

type TrainClass struct {
	Id   int
	Name string
}

var destinations = []Destination{
	{1, "Polgahawela"},
	{2, "Alawwa"},
	{3, "Ambepussa"},
	{4, "Botale"},
	{5, "Wellawatte"},
	{6, "Mirigama"},
	{7, "Ganegoda"},
	{8, "Veyangoda"},
	{9, "Heendeniya"},
	{10, "Gampaha"},
	{11, "Ganemulla"},
	{12, "Ragama"},
	{13, "Enderamulla"},
	{14, "Kelaniya"},
	{15, "Dematagoda"},
	{16, "Maradana"},
	{17, "Colombo Fort"},
}

var trainClasses = []TrainClass{
	{1, "First class"},
	{2, "Second class"},
	{3, "Third class"},
}

func NumDestinations() int {
	return len(destinations)
}

func NumClasses() int {
	return len(trainClasses)
}

func DestinationName(id int) string {
	for _, d := range destinations {
		if d.Id == id {
			return d.Name
		}
	}
	return "Unknown"
}

func ClassName(id int) string {
	for _, c := range trainClasses {
		if c.Id == id {
			return c.Name
		}
	}
	return "Unknown"
}
