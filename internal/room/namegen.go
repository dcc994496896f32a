package room

import (
	"fmt"
	"math/rand"
)

var nameAdjectives = []string{
	"awesome", "amazing", "great", "fantastic", "super", "admirable",
	"famous", "fine", "gigantic", "grand", "marvelous", "mighty",
	"outstanding", "splendid", "wonderful", "big", "smashing", "sensational",
}

var nameNouns = []string{
	"game", "adventure", "fun", "zone", "arena", "party", "tournament",
	"league", "gala", "gathering", "bunch", "fight", "battle", "conflict",
	"encounter", "clash", "combat", "confrontation", "challenge",
}

// RandomName returns a room name like "The mighty arena".
func RandomName() string {
	return fmt.Sprintf("The %s %s",
		nameAdjectives[rand.Intn(len(nameAdjectives))],
		nameNouns[rand.Intn(len(nameNouns))])
}
