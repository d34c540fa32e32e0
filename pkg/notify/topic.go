package notify

import (
	"fmt"
	"math/rand"
)

// topicWords feeds GenerateTopic. Short, unambiguous, easy to read aloud.
var topicWords = []string{
	"amber", "bright", "calm", "cedar", "coral", "dawn", "ember", "fern",
	"forest", "gold", "harbor", "iron", "lake", "lunar", "maple", "north",
	"ocean", "pine", "quiet", "river", "slate", "solar", "stone", "swift",
	"tidal", "vivid", "wild", "winter",
}

// GenerateTopic builds a random ntfy topic like "weekendfly-bright-forest-42".
// Topics act as capability tokens, so they carry enough entropy to not be
// guessed casually while staying typeable.
func GenerateTopic(prefix string) string {
	w1 := topicWords[rand.Intn(len(topicWords))]
	w2 := topicWords[rand.Intn(len(topicWords))]
	return fmt.Sprintf("%s-%s-%s-%d", prefix, w1, w2, 10+rand.Intn(90))
}
