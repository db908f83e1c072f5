package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cemse-quiz/internal/domain"
	"gopkg.in/yaml.v3"
)

// QuizLoader reads quizzes from <dir>/<quizID>.yaml (or .yml).
type QuizLoader struct {
	dir string
}

func NewQuizLoader(dir string) *QuizLoader {
	return &QuizLoader{dir: dir}
}

func (l *QuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || strings.ContainsAny(quizID, `/\`) || strings.Contains(quizID, "..") {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	for _, ext := range []string{".yaml", ".yml"} {
		quiz, err := ReadQuiz(filepath.Join(l.dir, quizID+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Quiz{}, err
		}
		if quiz.ID == "" {
			quiz.ID = quizID
		}
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// ReadQuiz decodes a single quiz definition file.
func ReadQuiz(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return quiz, nil
}
