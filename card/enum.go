package card

const RankInvalid Rank = 0

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Face
	Ace
)

// Ranks lists every rank in ascending order.
var Ranks = [...]Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Face, Ace}

// weights follows a 52-card deck: four of each rank, sixteen ten-valued cards.
var weights = [...]int{
	Two:   4,
	Three: 4,
	Four:  4,
	Five:  4,
	Six:   4,
	Seven: 4,
	Eight: 4,
	Nine:  4,
	Face:  16,
	Ace:   4,
}

// DeckSize is the total weight of one virtual deck.
const DeckSize = 52

// Weight returns how many cards of the rank a 52-card deck holds.
func Weight(r Rank) int {
	if !r.Valid() {
		return 0
	}
	return weights[r]
}
