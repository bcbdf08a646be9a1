package enrich

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// clusterStopwords are tokens too common to distinguish one issue from
// another. Kept small on purpose: over-filtering merges unrelated tickets.
var clusterStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the and for with that this have has had was were are you your not but can cant cannot wont dont its from when why " +
			"how what where please help hello thanks thank game app very just really also still would could should them they") {
		clusterStopwords[w] = struct{}{}
	}
}

const clusterKeywordCount = 8

// ClusterKey derives a deterministic grouping signature from signal text and
// extracted entities. Construction, precisely:
//
//  1. lowercase the signal text and strip every non-alphanumeric rune to a space
//  2. drop tokens shorter than 3 runes and stopwords
//  3. count token frequencies; keep the top 8 ordered by frequency descending,
//     ties broken alphabetically
//  4. join the kept tokens with platform and app version, SHA-1 the result,
//     return the first 16 hex characters
//
// Two differently-worded reports of the same issue tend to share high-signal
// tokens and collapse to one key; unrelated tickets keep disjoint token sets.
// False merges and false splits are both possible and both bounded by the
// fixed keyword budget.
func ClusterKey(signal string, e Entities) string {
	var b strings.Builder
	for _, r := range strings.ToLower(signal) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	freq := map[string]int{}
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := clusterStopwords[tok]; stop {
			continue
		}
		freq[tok]++
	}

	tokens := make([]string, 0, len(freq))
	for tok := range freq {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > clusterKeywordCount {
		tokens = tokens[:clusterKeywordCount]
	}

	sig := strings.Join(tokens, " ") + "|" + e.Platform + "|" + e.AppVersion
	sum := sha1.Sum([]byte(sig))
	return hex.EncodeToString(sum[:])[:16]
}
