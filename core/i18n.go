package core

import (
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
)

// User-facing notice keys. Params are documented in the en catalogue placeholders.
const (
	NoticeVideoLocked        = "video_locked"
	NoticeQuizLocked         = "quiz_locked"
	NoticeQuizUnlocked       = "quiz_unlocked"
	NoticeNotAvailable       = "not_available"
	NoticeUnlockEmailSubject = "unlock_email_subject"
	NoticeUnlockEmailBody    = "unlock_email_body"
)

var notices = map[string]map[string]string{
	"en": {
		NoticeVideoLocked:        "Please watch the previous video first to unlock this one.",
		NoticeQuizLocked:         "Watch at least {0}% of the course to unlock the quiz.",
		NoticeQuizUnlocked:       "Congratulations! You have unlocked the quiz for {0}.",
		NoticeNotAvailable:       "Not available",
		NoticeUnlockEmailSubject: "Quiz unlocked: {0}",
		NoticeUnlockEmailBody:    "You have watched {0}% of \"{1}\". The quiz is now available, good luck!",
	},
	"fr": {
		NoticeVideoLocked:        "Veuillez d'abord regarder la vidéo précédente pour débloquer celle-ci.",
		NoticeQuizLocked:         "Regardez au moins {0}% du cours pour débloquer le quiz.",
		NoticeQuizUnlocked:       "Félicitations ! Vous avez débloqué le quiz de {0}.",
		NoticeNotAvailable:       "Non disponible",
		NoticeUnlockEmailSubject: "Quiz débloqué : {0}",
		NoticeUnlockEmailBody:    "Vous avez regardé {0}% de « {1} ». Le quiz est maintenant disponible, bonne chance !",
	},
}

// Translators holds the notice catalogue for every supported locale.
// English is the fallback.
type Translators struct {
	uni     *ut.UniversalTranslator
	Default ut.Translator
}

func NewTranslators() (*Translators, error) {
	_en := en.New()
	uni := ut.New(_en, _en, fr.New())

	for locale, texts := range notices {
		trans, ok := uni.GetTranslator(locale)
		if !ok {
			continue
		}
		for key, text := range texts {
			if err := trans.Add(key, text, false); err != nil {
				return nil, err
			}
		}
	}

	def, _ := uni.GetTranslator("en")
	return &Translators{uni: uni, Default: def}, nil
}

// Find picks the best translator for an Accept-Language header value.
func (t *Translators) Find(acceptLanguage string) ut.Translator {
	var tags []string
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := CleanString(strings.SplitN(part, ";", 2)[0], true /* lower */)
		if tag == "" || tag == "*" {
			continue
		}
		tag = strings.ReplaceAll(tag, "-", "_")
		tags = append(tags, tag)
		if i := strings.Index(tag, "_"); i > 0 {
			tags = append(tags, tag[:i])
		}
	}
	if len(tags) > 0 {
		if trans, ok := t.uni.FindTranslator(tags...); ok {
			return trans
		}
	}
	return t.Default
}

// Notice renders a notice; unknown keys render as the key itself.
func Notice(trans ut.Translator, key string, params ...string) string {
	if trans == nil {
		return key
	}
	s, err := trans.T(key, params...)
	if err != nil {
		return key
	}
	return s
}
