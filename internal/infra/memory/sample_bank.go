package memory

import (
	"fmt"
	"math/rand"

	"studymaster-service/internal/domain"
)

type sampleQuestion struct {
	prompt  string
	correct string
	options []string
}

var sampleBank = []struct {
	subject   domain.Subject
	questions []sampleQuestion
}{
	{
		subject: domain.Subject{ID: "general", Name: "General Knowledge"},
		questions: []sampleQuestion{
			{"What is the capital of Germany?", "Berlin", []string{"Berlin", "Munich", "Frankfurt", "Hamburg"}},
			{"What is 2 + 2?", "4", []string{"3", "4", "5", "6"}},
			{"Which planet is known as the Red Planet?", "Mars", []string{"Earth", "Mars", "Jupiter", "Saturn"}},
			{"What is the boiling point of water?", "100°C", []string{"90°C", "100°C", "110°C", "120°C"}},
			{"Who wrote 'To be, or not to be'?", "William Shakespeare", []string{"J.K. Rowling", "Ernest Hemingway", "William Shakespeare", "Charles Dickens"}},
			{"What is the square root of 16?", "4", []string{"2", "3", "4", "5"}},
			{"What is the chemical symbol for water?", "H2O", []string{"H2O", "CO2", "O2", "NaCl"}},
			{"What color do you get when you mix red and blue?", "Purple", []string{"Green", "Yellow", "Purple", "Orange"}},
			{"Which animal is known as the king of the jungle?", "Lion", []string{"Elephant", "Tiger", "Lion", "Giraffe"}},
			{"What is the largest planet in our solar system?", "Jupiter", []string{"Earth", "Mars", "Jupiter", "Saturn"}},
		},
	},
	{
		subject: domain.Subject{ID: "control-systems", Name: "Control Systems"},
		questions: []sampleQuestion{
			{"What does a Bode plot represent?", "The frequency response of a system", []string{"The frequency response of a system", "The stability of a system", "The impulse response of a system", "Phase and amplitude at zero"}},
			{"Where must the poles lie for a system to be stable?", "In the left half-plane", []string{"In the left half-plane", "On the imaginary axis", "In the right half-plane", "Anywhere off the real axis"}},
			{"What does a pole with a positive real part mean?", "The system is unstable", []string{"The system is unstable", "The system is stable", "The system is critically damped", "The system oscillates"}},
			{"How is the open-loop transfer function computed?", "$T(p) = G(p) \\cdot H(p)$", []string{"$T(p) = G(p) \\cdot H(p)$", "$T(p) = G(p) + H(p)$", "$T(p) = G(p) / H(p)$", "$T(p) = G(p) - H(p)$"}},
			{"What is the closed-loop transfer function?", "$H(p) = \\frac{G(p)}{1 + G(p)H(p)}$", []string{"$H(p) = \\frac{G(p)}{1 + G(p)H(p)}$", "$H(p) = G(p) \\cdot H(p)$", "$H(p) = G(p) - H(p)$", "$H(p) = G(p) + H(p)$"}},
			{"What does an exponentially decaying response indicate?", "The system is stable", []string{"The system is stable", "The system is unstable", "The system is critical", "The system oscillates"}},
		},
	},
}

// SampleSubjects lists the subjects of the built-in question bank.
func SampleSubjects() []domain.Subject {
	subjects := make([]domain.Subject, 0, len(sampleBank))
	for _, entry := range sampleBank {
		subjects = append(subjects, entry.subject)
	}
	return subjects
}

// SampleQuestions returns the built-in question bank keyed by subject ID, in a stable order.
func SampleQuestions() map[string][]domain.Question {
	out := make(map[string][]domain.Question, len(sampleBank))
	for _, entry := range sampleBank {
		questions := make([]domain.Question, 0, len(entry.questions))
		for i, sq := range entry.questions {
			questions = append(questions, domain.Question{
				ID:            fmt.Sprintf("%s-%02d", entry.subject.ID, i+1),
				SubjectID:     entry.subject.ID,
				Prompt:        sq.prompt,
				CorrectAnswer: sq.correct,
				Options:       append([]string(nil), sq.options...),
			})
		}
		out[entry.subject.ID] = questions
	}
	return out
}

// ShuffledQuestions returns a copy with question order and each option list shuffled.
func ShuffledQuestions(questions []domain.Question, rnd *rand.Rand) []domain.Question {
	shuffled := cloneQuestions(questions)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for _, q := range shuffled {
		opts := q.Options
		rnd.Shuffle(len(opts), func(i, j int) {
			opts[i], opts[j] = opts[j], opts[i]
		})
	}
	return shuffled
}
