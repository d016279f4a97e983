package questions

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/wfunc/triviaserver/models"
)

type seed struct {
	text    string
	options [4]string
	correct string
}

// 内置题库，分类不存在时回退到 general
var builtin = map[string][]seed{
	"general": {
		{"Which planet is known as the Red Planet?", [4]string{"Venus", "Mars", "Jupiter", "Saturn"}, "Mars"},
		{"Who painted the Mona Lisa?", [4]string{"Vincent van Gogh", "Pablo Picasso", "Leonardo da Vinci", "Michelangelo"}, "Leonardo da Vinci"},
		{"What is the capital of Japan?", [4]string{"Beijing", "Seoul", "Bangkok", "Tokyo"}, "Tokyo"},
		{"Which element has the chemical symbol 'O'?", [4]string{"Gold", "Oxygen", "Osmium", "Oganesson"}, "Oxygen"},
		{"In what year did World War II end?", [4]string{"1943", "1945", "1947", "1950"}, "1945"},
	},
	"science": {
		{"What is the atomic number of Carbon?", [4]string{"4", "6", "8", "12"}, "6"},
		{"Which of these is NOT a state of matter?", [4]string{"Plasma", "Gas", "Energy", "Solid"}, "Energy"},
	},
	"history": {
		{"Who was the first President of the United States?", [4]string{"Thomas Jefferson", "John Adams", "George Washington", "Benjamin Franklin"}, "George Washington"},
		{"When did the French Revolution begin?", [4]string{"1789", "1776", "1804", "1812"}, "1789"},
	},
}

const fallbackCategory = "general"

// Static serves questions from the built-in set. A category with fewer
// questions than requested is cycled.
type Static struct {
	newID func() string
}

func NewStatic() *Static {
	return &Static{newID: uuid.NewString}
}

func (s *Static) Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(category))
	seeds, ok := builtin[key]
	if !ok {
		seeds = builtin[fallbackCategory]
	}
	if category == "" {
		category = fallbackCategory
	}

	out := make([]models.Question, 0, count)
	for i := 0; i < count; i++ {
		sd := seeds[i%len(seeds)]
		out = append(out, models.Question{
			ID:            s.newID(),
			Text:          sd.text,
			Options:       sd.options[:],
			CorrectAnswer: sd.correct,
			Category:      category,
			Difficulty:    difficulty,
		})
	}
	return out, nil
}

// Categories lists the built-in categories.
func Categories() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	return out
}
