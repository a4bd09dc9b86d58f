package models

// Movie is a catalog listing entry.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	BackdropPath string  `json:"backdropPath"`
	PosterPath   string  `json:"posterPath"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"voteAverage"`
	ReleaseDate  string  `json:"releaseDate"`
}
