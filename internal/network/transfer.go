package network

// TransferType affects only rendering and generated walking prose.
type TransferType string

const (
	TransferRegular       TransferType = "regular"
	TransferCrossPlatform TransferType = "crossplatform"
	TransferEscalator     TransferType = "escalator"
	TransferWalking       TransferType = "walking"
	TransferGround        TransferType = "ground"
)

// Transfer links two or more stations that a rider can walk between in Time
// minutes.
type Transfer struct {
	Stations []*Station
	Time     int
	Type     TransferType
	Map      string
	Routes   []TransferRoute
}

// TransferRoute is one pre-authored walking path inside a transfer. Prev and
// Next are empty when the path does not depend on the direction of travel.
type TransferRoute struct {
	From string
	To   string
	Prev string
	Next string
	Map  string
	Way  []Point
}
