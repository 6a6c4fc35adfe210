package domain

import "time"

// Mode identifies a game mode. It doubles as the key of the per-mode score table.
type Mode string

const (
	ModeVersus     Mode = "versus"
	ModeBlur       Mode = "blur"
	ModeWhoAmI     Mode = "whoami"
	ModeImpostor   Mode = "impostor"
	ModeTournament Mode = "tournament"
)

// Modes lists every playable mode.
var Modes = []Mode{ModeVersus, ModeBlur, ModeWhoAmI, ModeImpostor, ModeTournament}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Scored reports whether sessions of this mode produce a numeric score.
// Tournaments produce a winner instead.
func (m Mode) Scored() bool {
	return m.Valid() && m != ModeTournament
}

// Movie is a catalog entry as returned by discovery.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	PosterPath       string  `json:"posterPath,omitempty"`
	VoteAverage      float64 `json:"voteAverage"`
	VoteCount        int     `json:"voteCount"`
	Popularity       float64 `json:"popularity"`
	ReleaseDate      string  `json:"releaseDate,omitempty"`
	GenreIDs         []int   `json:"genreIds,omitempty"`
	OriginalLanguage string  `json:"originalLanguage,omitempty"`
}

// Year returns the release year or "" when unknown.
func (m Movie) Year() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

// CastMember is a credited actor, in billing order.
type CastMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Order     int    `json:"order"`
}

// MovieDetails is the secondary detail fetched per candidate. The zero value
// is the degraded form used when the detail request fails.
type MovieDetails struct {
	Genres   []string     `json:"genres,omitempty"`
	Tagline  string       `json:"tagline,omitempty"`
	Overview string       `json:"overview,omitempty"`
	Runtime  int          `json:"runtime,omitempty"`
	Cast     []CastMember `json:"cast,omitempty"`
	Director string       `json:"director,omitempty"`
}

// Person is a popular actor used by the impostor mode.
type Person struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	ProfilePath        string `json:"profilePath,omitempty"`
	KnownForDepartment string `json:"knownForDepartment,omitempty"`
	KnownForCount      int    `json:"knownForCount"`
}

// ScoreRecord is the best score of a player in one mode.
type ScoreRecord struct {
	PlayerID string    `json:"playerId"`
	Mode     Mode      `json:"mode"`
	Score    int       `json:"score"`
	PlayedAt time.Time `json:"playedAt"`
}

// Profile is the public face of a player.
type Profile struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Account holds login credentials.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LeaderboardEntry is a score row decorated with profile data.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Score       int       `json:"score"`
	PlayedAt    time.Time `json:"playedAt"`
}

// TournamentSettings are the filters a tournament was played with.
type TournamentSettings struct {
	Genre       string `json:"genre"`
	YearFrom    int    `json:"yearFrom"`
	YearTo      int    `json:"yearTo"`
	Language    string `json:"language"`
	TotalMovies int    `json:"totalMovies"`
	SortBy      string `json:"sortBy"`
}

// HallOfFameEntry records a tournament winner.
type HallOfFameEntry struct {
	SessionID string             `json:"sessionId"`
	PlayerID  string             `json:"playerId,omitempty"`
	Movie     Movie              `json:"movie"`
	Settings  TournamentSettings `json:"settings"`
	WonAt     time.Time          `json:"wonAt"`
}
