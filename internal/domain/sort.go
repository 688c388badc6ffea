package domain

import (
	"sort"
	"strings"
)

// SortOption orders game listings.
type SortOption string

// Supported sort orders.
const (
	SortNewest    SortOption = "newest"
	SortOldest    SortOption = "oldest"
	SortMostLiked SortOption = "most_liked"
	SortPopular   SortOption = "popular"
	SortTrending  SortOption = "trending"
	SortTitle     SortOption = "title"
)

// SortGames orders games in place. Unknown options fall back to newest.
func SortGames(games []*Game, opt SortOption) {
	switch opt {
	case SortOldest:
		sort.SliceStable(games, func(i, j int) bool {
			return games[i].CreatedAt.Before(games[j].CreatedAt)
		})
	case SortMostLiked:
		sort.SliceStable(games, func(i, j int) bool {
			if games[i].Likes != games[j].Likes {
				return games[i].Likes > games[j].Likes
			}
			return games[i].CreatedAt.After(games[j].CreatedAt)
		})
	case SortPopular:
		sort.SliceStable(games, func(i, j int) bool {
			if games[i].PlayCount != games[j].PlayCount {
				return games[i].PlayCount > games[j].PlayCount
			}
			return games[i].CreatedAt.After(games[j].CreatedAt)
		})
	case SortTrending:
		sort.SliceStable(games, func(i, j int) bool {
			if games[i].Likes != games[j].Likes {
				return games[i].Likes > games[j].Likes
			}
			if games[i].PlayCount != games[j].PlayCount {
				return games[i].PlayCount > games[j].PlayCount
			}
			return games[i].CreatedAt.After(games[j].CreatedAt)
		})
	case SortTitle:
		sort.SliceStable(games, func(i, j int) bool {
			return strings.ToLower(games[i].Title) < strings.ToLower(games[j].Title)
		})
	default:
		sort.SliceStable(games, func(i, j int) bool {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		})
	}
}
