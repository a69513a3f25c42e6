package category

import (
	"strings"
	"unicode"

	"github.com/jbrukh/bayesian"
)

const (
	MinTrainingSamples    = 10
	minTrainingCategories = 2
)

type Sample struct {
	Description string
	Category    string
}

// Learner is a naive Bayes model over description words.
type Learner struct {
	classifier *bayesian.Classifier
	classes    []bayesian.Class
	vocabulary map[string]bool
}

// Train builds a learner from labelled samples. It returns nil when there are fewer than
// MinTrainingSamples usable samples or fewer than two categories.
func Train(samples []Sample) *Learner {
	docs := make(map[bayesian.Class][][]string)
	var order []bayesian.Class
	usable := 0
	for _, s := range samples {
		words := Tokenize(s.Description)
		if len(words) == 0 || strings.TrimSpace(s.Category) == "" {
			continue
		}
		class := bayesian.Class(s.Category)
		if _, ok := docs[class]; !ok {
			order = append(order, class)
		}
		docs[class] = append(docs[class], words)
		usable++
	}
	if usable < MinTrainingSamples || len(order) < minTrainingCategories {
		return nil
	}

	classifier := bayesian.NewClassifier(order...)
	vocabulary := make(map[string]bool)
	for _, class := range order {
		for _, words := range docs[class] {
			classifier.Learn(words, class)
			for _, w := range words {
				vocabulary[w] = true
			}
		}
	}
	return &Learner{classifier: classifier, classes: order, vocabulary: vocabulary}
}

// Predict returns the most likely category. ok is false when the description has no known
// words or the top score is tied.
func (l *Learner) Predict(description string) (string, bool) {
	if l == nil {
		return "", false
	}
	words := Tokenize(description)
	if len(words) == 0 || !l.knows(words) {
		return "", false
	}
	_, best, strict := l.classifier.LogScores(words)
	if !strict {
		return "", false
	}
	return string(l.classes[best]), true
}

func (l *Learner) knows(words []string) bool {
	for _, w := range words {
		if l.vocabulary[w] {
			return true
		}
	}
	return false
}

// Categories lists the labels the model can predict.
func (l *Learner) Categories() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.classes))
	for i, c := range l.classes {
		out[i] = string(c)
	}
	return out
}

// Tokenize lower-cases text and splits it into words of at least two letters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '&' && r != '\''
	})
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'&")
		if len([]rune(f)) >= 2 {
			words = append(words, f)
		}
	}
	return words
}
