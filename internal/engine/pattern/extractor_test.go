// internal/engine/pattern/extractor_test.go
package pattern

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"listing-grader/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func sampleExemplars() []models.Listing {
	return []models.Listing{
		{
			ID:               "a",
			Title:            "Fast Inventory System",
			ShortDescription: "A fast inventory system for RPG games.",
			LongDescription:  "<h2>Key Features</h2><ul><li>Drag and drop</li><li>Save system</li></ul><p>See the demo at https://example.com</p>",
			Tags:             []string{"Inventory", "RPG", "ui"},
			Category:         "Tools",
			Price:            price(20),
			ImagesCount:      8,
			VideosCount:      1,
		},
		{
			ID:               "b",
			Title:            "Inventory System Pro",
			ShortDescription: "Inventory with crafting support.",
			LongDescription:  "Requires Unity 2021.\n• Crafting\n• Loot tables",
			Tags:             []string{"inventory", "crafting", " RPG "},
			Category:         "Tools",
			Price:            price(40),
			ImagesCount:      4,
		},
		{
			ID:               "c",
			Title:            "Dialogue Editor",
			ShortDescription: "Branching dialogue for games.",
			LongDescription:  "Buy now and get started.",
			Tags:             []string{"dialogue", "ui", "ui"},
			Category:         "Tools",
			Price:            price(0),
			ImagesCount:      2,
			VideosCount:      2,
		},
	}
}

func TestMinSupport(t *testing.T) {
	tests := []struct {
		count    int
		ratio    float64
		expected int
	}{
		{count: 0, ratio: 0.15, expected: 1},
		{count: 3, ratio: 0.15, expected: 1},
		{count: 20, ratio: 0.15, expected: 3},
		{count: 100, ratio: 0.2, expected: 20},
		{count: 7, ratio: 0.2, expected: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d@%g", tt.count, tt.ratio), func(t *testing.T) {
			assert.Equal(t, tt.expected, MinSupport(tt.count, tt.ratio))
		})
	}
}

func TestExtract_Vocabulary(t *testing.T) {
	e := NewExtractor(Config{IgnoreStopWords: true, SupportRatio: 0.5})
	p := e.Extract("Tools", sampleExemplars())

	assert.Equal(t, 3, p.ExemplarCount)
	assert.Equal(t, 1, p.MinSupport)

	require.NotEmpty(t, p.Vocabulary.TitleTerms)
	assert.Equal(t, models.TermFrequency{Term: "inventory", Frequency: 2}, p.Vocabulary.TitleTerms[0])
	assert.Equal(t, models.TermFrequency{Term: "system", Frequency: 2}, p.Vocabulary.TitleTerms[1])
	assert.Contains(t, p.Vocabulary.TitleBigrams, models.TermFrequency{Term: "inventory system", Frequency: 2})
}

func TestExtract_MinimumSupportDropsRareTerms(t *testing.T) {
	e := NewExtractor(Config{IgnoreStopWords: true, SupportRatio: 0.6})
	p := e.Extract("Tools", sampleExemplars())

	// floor(3*0.6) = 1, so everything survives; raise the sample to make it bite
	assert.Equal(t, 1, p.MinSupport)

	many := append(sampleExemplars(), sampleExemplars()...)
	for i := range many {
		many[i].ID = fmt.Sprintf("l-%d", i)
	}
	p = e.Extract("Tools", many)
	assert.Equal(t, 3, p.MinSupport)
	for _, tf := range p.Vocabulary.TitleTerms {
		assert.GreaterOrEqual(t, tf.Frequency, 3, tf.Term)
	}
	assert.NotContains(t, termsOf(p.Vocabulary.TitleTerms), "dialogue")
}

func TestExtract_Tags(t *testing.T) {
	e := NewExtractor(Config{SupportRatio: 0.5})
	p := e.Extract("Tools", sampleExemplars())

	assert.Equal(t, []models.TermFrequency{
		{Term: "inventory", Frequency: 2},
		{Term: "rpg", Frequency: 2},
		{Term: "ui", Frequency: 2},
		{Term: "crafting", Frequency: 1},
		{Term: "dialogue", Frequency: 1},
	}, p.Tags.Frequencies)

	assert.Equal(t, models.TermFrequency{Term: "inventory|rpg", Frequency: 2}, p.Tags.Cooccurrence[0])
	for _, pair := range p.Tags.Cooccurrence {
		parts := strings.Split(pair.Term, "|")
		require.Len(t, parts, 2)
		assert.Less(t, parts[0], parts[1])
	}
}

func TestExtract_StructureMediaPrice(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	p := e.Extract("Tools", sampleExemplars())

	assert.Equal(t, 2.0, p.Structure.BulletCount.Max)
	assert.InDelta(t, 4.0/3.0, p.Structure.BulletCount.Mean, 1e-9)
	assert.InDelta(t, 1.0/3.0, p.Structure.HasFeaturesRatio, 1e-9)
	assert.InDelta(t, 1.0/3.0, p.Structure.HasRequirementsRatio, 1e-9)
	assert.InDelta(t, 1.0/3.0, p.Structure.HasExamplesRatio, 1e-9)
	assert.InDelta(t, 1.0/3.0, p.Structure.HasLinksRatio, 1e-9)
	assert.InDelta(t, 1.0/3.0, p.Structure.HasCTARatio, 1e-9)

	assert.Equal(t, 2.0, p.Media.Images.Min)
	assert.Equal(t, 8.0, p.Media.Images.Max)
	assert.Equal(t, 4.0, p.Media.Images.Median)
	assert.InDelta(t, 2.0/3.0, p.Media.WithVideoFraction, 1e-9)

	assert.Equal(t, 2, p.Price.Count)
	assert.Equal(t, 20.0, p.Price.Min)
	assert.Equal(t, 40.0, p.Price.Max)
	assert.Equal(t, 30.0, p.Price.Median)
	assert.Equal(t, 25.0, p.Price.Q1)
	assert.Equal(t, 35.0, p.Price.Q3)
}

func TestExtract_NoPricesIsZeroValued(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	p := e.Extract("Free", []models.Listing{{ID: "a", Title: "Free Tool", Category: "Free"}})
	assert.Equal(t, models.PricePatterns{}, p.Price)
}

func TestExtract_Empty(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	p := e.Extract("Empty", nil)
	assert.Equal(t, 0, p.ExemplarCount)
	assert.Empty(t, p.Vocabulary.TitleTerms)
	assert.Zero(t, p.Structure.HasCTARatio)
}

func termsOf(tfs []models.TermFrequency) []string {
	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = tf.Term
	}
	return out
}

var vocabularyWords = []string{"inventory", "system", "shader", "water", "dialogue", "editor", "terrain", "audio"}

func genListings() gopter.Gen {
	return gen.SliceOf(gen.SliceOfN(4, gen.IntRange(0, len(vocabularyWords)-1))).Map(func(rows [][]int) []models.Listing {
		out := make([]models.Listing, len(rows))
		for i, row := range rows {
			words := make([]string, len(row))
			for j, idx := range row {
				words[j] = vocabularyWords[idx]
			}
			out[i] = models.Listing{
				ID:               fmt.Sprintf("l-%03d", i),
				Title:            strings.Join(words, " "),
				ShortDescription: strings.Join(words[1:], " "),
				Tags:             words[:2],
				Category:         "P",
				ImagesCount:      len(row) + i%5,
				VideosCount:      i % 2,
				Price:            price(float64(i%7) * 3),
			}
		}
		return out
	})
}

func TestExtract_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	e := NewExtractor(DefaultConfig())

	properties.Property("every table entry meets minimum support", prop.ForAll(
		func(listings []models.Listing) bool {
			p := e.Extract("P", listings)
			min := MinSupport(len(listings), DefaultSupportRatio)
			tables := [][]models.TermFrequency{
				p.Vocabulary.TitleTerms, p.Vocabulary.TitleBigrams, p.Vocabulary.DescriptionTerms,
				p.Tags.Frequencies, p.Tags.Cooccurrence,
			}
			for _, table := range tables {
				if len(table) > MaxTableEntries {
					return false
				}
				for _, tf := range table {
					if tf.Frequency < min {
						return false
					}
				}
			}
			return true
		},
		genListings(),
	))

	properties.Property("output does not depend on exemplar order", prop.ForAll(
		func(listings []models.Listing) bool {
			reversed := make([]models.Listing, len(listings))
			for i, l := range listings {
				reversed[len(listings)-1-i] = l
			}
			return reflect.DeepEqual(e.Extract("P", listings), e.Extract("P", reversed))
		},
		genListings(),
	))

	properties.TestingRun(t)
}
