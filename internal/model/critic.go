package model

import "time"

// Critic is a recognized wine-critic identity.
type Critic string

const (
	CriticRobertParker   Critic = "robert_parker"
	CriticWineSpectator  Critic = "wine_spectator"
	CriticJamesSuckling  Critic = "james_suckling"
	CriticDecanter       Critic = "decanter"
	CriticJancisRobinson Critic = "jancis_robinson"
	CriticWineEnthusiast Critic = "wine_enthusiast"
	CriticVinous         Critic = "vinous"
	CriticAggregate      Critic = "aggregate"
	CriticOther          Critic = "other"
)

// Critics lists every member of the taxonomy.
var Critics = []Critic{
	CriticRobertParker,
	CriticWineSpectator,
	CriticJamesSuckling,
	CriticDecanter,
	CriticJancisRobinson,
	CriticWineEnthusiast,
	CriticVinous,
	CriticAggregate,
	CriticOther,
}

// Valid reports whether c is a member of the taxonomy.
func (c Critic) Valid() bool {
	for _, k := range Critics {
		if c == k {
			return true
		}
	}
	return false
}

// CriticScore is one critic's score for a (wine, vintage) pair.
type CriticScore struct {
	ID        int64     `json:"id"`
	WineID    int64     `json:"wine_id"`
	Vintage   *int      `json:"vintage"`
	Critic    Critic    `json:"critic"`
	Score     int       `json:"score"`
	Note      string    `json:"note,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the (wine, vintage) pair the score belongs to.
func (s CriticScore) Key() Pair {
	return Pair{WineID: s.WineID, Vintage: s.Vintage}
}

// CriticScoreRow is a critic score joined with its catalog names for listing.
type CriticScoreRow struct {
	CriticScore
	WineName     string `json:"wine_name"`
	ProducerName string `json:"producer_name"`
}
