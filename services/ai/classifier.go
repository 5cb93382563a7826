package ai

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/interfaces"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
)

const ClassifierAuto = "auto"

// NewClassifier picks the classifier named by kind. "auto" uses OpenAI when
// an API key is configured and the rule classifier otherwise.
func NewClassifier(kind string, openAIConfig *config.OpenAIConfig) (interfaces.Classifier, error) {
	hasKey := openAIConfig != nil && openAIConfig.ApiKey != ""

	switch kind {
	case "", ClassifierAuto:
		if hasKey {
			return NewOpenAIClassifier(openAIConfig), nil
		}
		return NewRuleClassifier(), nil
	case ClassifierOpenAI:
		if !hasKey {
			return nil, errors.Wrap(triageerrors.ErrInvalidInput, "OPENAI_API_KEY is required for the openai classifier")
		}
		return NewOpenAIClassifier(openAIConfig), nil
	case ClassifierRules:
		return NewRuleClassifier(), nil
	default:
		return nil, errors.Wrapf(triageerrors.ErrInvalidInput, "unknown classifier %q", kind)
	}
}
