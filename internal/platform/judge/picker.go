package judge

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
)

var ErrNoProblemFound = errors.New("no problem found matching the given filters")

// RandomFilter asks the picker to choose a tag or rating itself.
const RandomFilter = "random"

// Picker selects a random problem from a fetched catalog.
//
// Tag handling: "random" draws a tag uniformly from tags that occur
// in at least minTagCount problems (any tag if none qualifies);
// otherwise ALL given tags must be present, case-insensitively.
// Rating handling: "random" draws uniformly among ratings present in
// the tag-filtered set; a number filters to the exact rating; empty
// means no rating filter. When the filtered set comes up empty the
// whole selection is retried up to maxRetries times, which only
// changes the outcome for tags=="random" since a fixed tag set
// filters identically every time.
type Picker struct {
	minTagCount int
	maxRetries  int
	intn        func(n int) int
}

func NewPicker(minTagCount, maxRetries int) *Picker {
	if minTagCount <= 0 {
		minTagCount = 10
	}
	return &Picker{
		minTagCount: minTagCount,
		maxRetries:  maxRetries,
		intn:        rand.Intn,
	}
}

func (p *Picker) PickRandom(problems []Problem, tags []string, rating string, minSolved int) (*Problem, error) {
	if len(problems) == 0 {
		return nil, ErrNoProblemFound
	}

	randomTag := len(tags) == 0 || (len(tags) == 1 && strings.EqualFold(tags[0], RandomFilter))

	for attempt := 0; ; attempt++ {
		candidates := p.filterByTags(problems, tags, randomTag)
		candidates = p.filterByRating(candidates, rating)
		if minSolved > 0 {
			kept := candidates[:0]
			for _, pr := range candidates {
				if pr.SolvedCount >= minSolved {
					kept = append(kept, pr)
				}
			}
			candidates = kept
		}

		if len(candidates) > 0 {
			picked := candidates[p.intn(len(candidates))]
			return &picked, nil
		}
		if attempt >= p.maxRetries {
			return nil, ErrNoProblemFound
		}
	}
}

func (p *Picker) filterByTags(problems []Problem, tags []string, randomTag bool) []Problem {
	if randomTag {
		tag := p.drawTag(problems)
		if tag == "" {
			return nil
		}
		tags = []string{tag}
	}

	want := make([]string, 0, len(tags))
	for _, t := range tags {
		want = append(want, strings.ToLower(strings.TrimSpace(t)))
	}

	var out []Problem
	for _, pr := range problems {
		have := make(map[string]bool, len(pr.Tags))
		for _, t := range pr.Tags {
			have[strings.ToLower(t)] = true
		}
		all := true
		for _, t := range want {
			if !have[t] {
				all = false
				break
			}
		}
		if all {
			out = append(out, pr)
		}
	}
	return out
}

// drawTag picks a tag uniformly among tags occurring in at least
// minTagCount problems, falling back to any tag if none qualifies.
func (p *Picker) drawTag(problems []Problem) string {
	counts := make(map[string]int)
	var order []string // deterministic iteration for the uniform draw
	for _, pr := range problems {
		for _, t := range pr.Tags {
			t = strings.ToLower(t)
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	if len(order) == 0 {
		return ""
	}

	var eligible []string
	for _, t := range order {
		if counts[t] >= p.minTagCount {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		eligible = order
	}
	return eligible[p.intn(len(eligible))]
}

func (p *Picker) filterByRating(problems []Problem, rating string) []Problem {
	rating = strings.TrimSpace(rating)
	if rating == "" {
		return problems
	}

	if strings.EqualFold(rating, RandomFilter) {
		seen := make(map[int]bool)
		var ratings []int
		for _, pr := range problems {
			if pr.Rating > 0 && !seen[pr.Rating] {
				seen[pr.Rating] = true
				ratings = append(ratings, pr.Rating)
			}
		}
		if len(ratings) == 0 {
			return nil
		}
		want := ratings[p.intn(len(ratings))]
		return ratingMatches(problems, want)
	}

	want, err := strconv.Atoi(rating)
	if err != nil {
		return nil
	}
	return ratingMatches(problems, want)
}

func ratingMatches(problems []Problem, rating int) []Problem {
	var out []Problem
	for _, pr := range problems {
		if pr.Rating == rating {
			out = append(out, pr)
		}
	}
	return out
}
