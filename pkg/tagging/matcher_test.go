package tagging

import (
	"testing"

	"edu-archive-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSubstringMatcher_AttachesOnce(t *testing.T) {
	vocab := []model.Tag{{ID: 1, Name: "Urgent"}, {ID: 2, Name: "Budget"}}
	m := NewSubstringMatcher()

	matched := m.Match("Urgent Request for Funds", "", vocab, nil)
	assert.Equal(t, []model.Tag{{ID: 1, Name: "Urgent"}}, matched)

	tags := Merge(nil, matched)
	again := m.Match("Urgent Request for Funds", "", vocab, tags)
	assert.Empty(t, again)
	assert.Len(t, Merge(tags, again), 1)
}

func TestSubstringMatcher_CaseInsensitiveOverText(t *testing.T) {
	vocab := []model.Tag{{Name: "budget"}, {Name: "rapat"}, {Name: " "}}
	matched := NewSubstringMatcher().Match("Memo", "the BUDGET for next term", vocab, nil)
	assert.Equal(t, []model.Tag{{Name: "budget"}}, matched)
}

func TestSubstringMatcher_EmptyInput(t *testing.T) {
	assert.Nil(t, NewSubstringMatcher().Match("", "", []model.Tag{{Name: "x"}}, nil))
}

func TestMerge_DedupesByName(t *testing.T) {
	got := Merge([]model.Tag{{ID: 1, Name: "A"}}, []model.Tag{{ID: 9, Name: "a"}, {ID: 2, Name: "B"}})
	assert.Equal(t, []model.Tag{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, got)
}

func TestMatchAndMerge_FoldUnicodeAlike(t *testing.T) {
	vocab := []model.Tag{{ID: 3, Name: "οδος"}}
	matched := NewSubstringMatcher().Match("ΟΔΟΣ ΠΑΝΕΠΙΣΤΗΜΙΟΥ", "", vocab, nil)
	assert.Equal(t, vocab, matched)

	got := Merge([]model.Tag{{ID: 7, Name: "ΟΔΟΣ"}}, matched)
	assert.Equal(t, []model.Tag{{ID: 7, Name: "ΟΔΟΣ"}}, got)
}
