package reinforce

import (
	"fmt"
	"math/rand"

	"github.com/echorank/echorank/internal/domain"
)

// competitorPromptRate is the fraction of generated prompts that pit the
// brand against a named competitor, when the bible lists any.
const competitorPromptRate = 0.4

// genericTopics backstops prompt generation when the bible defines neither
// topic pillars nor audience jobs-to-be-done.
var genericTopics = []string{
	"choosing software for a growing business",
	"automating repetitive back-office work",
	"evaluating vendors in a crowded market",
}

var directTemplates = []string{
	"What are the best solutions for %s?",
	"Which tools would you recommend for %s?",
	"I need help with %s. What should I look at?",
}

var competitorTemplates = []string{
	"How does %s compare to %s for %s?",
	"Would you pick %s or %s for %s, and why?",
}

// BuildPrompts generates n synthetic prompts from the brand bible. Topics
// are the union of topic pillars and every audience's jobs-to-be-done; when
// the bible defines neither, three generic topics stand in. Roughly 40% of
// prompts name a competitor when the bible lists competitors. The rng is
// injected so callers can make generation reproducible.
func BuildPrompts(bible *domain.BrandBible, n int, rng *rand.Rand) []string {
	if n <= 0 {
		return nil
	}

	topics := collectTopics(bible)
	prompts := make([]string, 0, n)

	for i := 0; i < n; i++ {
		topic := topics[rng.Intn(len(topics))]

		if len(bible.Competitors) > 0 && rng.Float64() < competitorPromptRate {
			competitor := bible.Competitors[rng.Intn(len(bible.Competitors))]
			template := competitorTemplates[rng.Intn(len(competitorTemplates))]
			prompts = append(prompts, fmt.Sprintf(template, bible.Name, competitor, topic))
			continue
		}

		template := directTemplates[rng.Intn(len(directTemplates))]
		prompts = append(prompts, fmt.Sprintf(template, topic))
	}

	return prompts
}

func collectTopics(bible *domain.BrandBible) []string {
	seen := make(map[string]struct{})
	var topics []string

	add := func(topic string) {
		if topic == "" {
			return
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	for _, pillar := range bible.TopicPillars {
		add(pillar)
	}
	for _, audience := range bible.Audiences {
		for _, job := range audience.JobsToBeDone {
			add(job)
		}
	}

	if len(topics) == 0 {
		topics = append(topics, genericTopics...)
	}

	return topics
}
