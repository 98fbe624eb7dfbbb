package usecase

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/allergenai/backend/internal/domain"
	"go.uber.org/zap"
)

// defaultMaxTokens bounds the model output when no budget is configured
const defaultMaxTokens int64 = 4096

// responseSchema describes the pseudo-XML document the model is asked to emit:
//
//	<root><item><name>…</name><description>…</description></item>…</root>
type responseSchema struct {
	version string
	kind    string // "ingredient" or "additive"
	root    string
	item    string
}

var (
	ingredientSchema = responseSchema{version: "v1", kind: "ingredient", root: "ingredients", item: "ingredient"}
	additiveSchema   = responseSchema{version: "v1", kind: "additive", root: "additives", item: "additive"}
)

var errSchemaViolation = errors.New("response does not match schema")

const ingredientPromptTemplate = `Here is a list of ingredients:
<ingredients>
%s
</ingredients>

Extract each ingredient and generate a description for each ingredient to explain it to a 5 years old child.
Translate each ingredient name from its original language to %s and provide the description in %s.
Skip the preamble and provide only the response in this XML format:
<ingredients>
    <ingredient>
        <name>{INGREDIENT}</name>
        <description>{DESCRIPTION}</description>
    </ingredient>
</ingredients>
`

const additivePromptTemplate = `Here is a list of additives:
<additives>
%s
</additives>

Extract each additive and generate a description for each additive to explain it to a 5 years old child.
Provide the description in %s, skip the preamble and provide only the response in this XML format:
<additives>
    <additive>
        <name>{ADDITIVE}</name>
        <description>{DESCRIPTION}</description>
    </additive>
</additives>
`

// DescriptionConfig holds configuration for the description service
type DescriptionConfig struct {
	MaxTokens int64
}

// DescriptionService builds prompts for the generative-text model and parses
// its replies into name→description mappings.
type DescriptionService struct {
	generator domain.TextGenerator
	maxTokens int64
}

// NewDescriptionService creates a description service backed by generator
func NewDescriptionService(generator domain.TextGenerator, config DescriptionConfig) *DescriptionService {
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &DescriptionService{
		generator: generator,
		maxTokens: maxTokens,
	}
}

// DescribeIngredients explains each ingredient found in the given ingredient
// texts in the target language. Any failure is logged and returned wrapped in
// domain.ErrGenerationFailed with a nil map.
func (s *DescriptionService) DescribeIngredients(ctx context.Context, ingredients []string, language string) (map[string]string, error) {
	lang := capitalizeWord(strings.TrimSpace(language))
	prompt := fmt.Sprintf(ingredientPromptTemplate, strings.Join(ingredients, "\n"), lang, lang)
	return s.describe(ctx, ingredientSchema, prompt, language)
}

// DescribeAdditives explains each additive tag in the target language. An empty
// tag list returns an empty mapping without calling the model.
func (s *DescriptionService) DescribeAdditives(ctx context.Context, tags []string, language string) (map[string]string, error) {
	if len(tags) == 0 {
		return map[string]string{}, nil
	}
	lang := capitalizeWord(strings.TrimSpace(language))
	prompt := fmt.Sprintf(additivePromptTemplate, strings.Join(tags, ", "), lang)
	return s.describe(ctx, additiveSchema, prompt, language)
}

func (s *DescriptionService) describe(ctx context.Context, schema responseSchema, prompt, language string) (map[string]string, error) {
	log := zap.L().With(
		zap.String("kind", schema.kind),
		zap.String("schema", schema.version),
		zap.String("language", language),
	)

	raw, err := s.generator.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		log.Warn("description generation: model call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	descriptions, err := parseDescriptions(raw, schema)
	if err != nil {
		log.Warn("description generation: unparseable reply",
			zap.Error(err),
			zap.Int("reply_length", len(raw)),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	log.Debug("description generation: parsed reply", zap.Int("items", len(descriptions)))
	return descriptions, nil
}

// xmlItem is one <ingredient> or <additive> element. Pointer fields distinguish a
// missing child element from an empty one.
type xmlItem struct {
	XMLName     xml.Name
	Name        *string `xml:"name"`
	Description *string `xml:"description"`
}

type xmlDocument struct {
	XMLName xml.Name
	Items   []xmlItem `xml:",any"`
}

// parseDescriptions extracts the name→description mapping from a model reply.
// Any text before the first root opening tag is discarded; anything after the
// root element is ignored. Names are normalized with StripBracketed and later
// duplicates overwrite earlier ones.
func parseDescriptions(raw string, schema responseSchema) (map[string]string, error) {
	openTag := "<" + schema.root + ">"
	start := strings.Index(raw, openTag)
	if start == -1 {
		return nil, fmt.Errorf("%w: no %s element", errSchemaViolation, openTag)
	}

	decoder := xml.NewDecoder(strings.NewReader(raw[start:]))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	var doc xmlDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", schema.root, err)
	}

	descriptions := make(map[string]string, len(doc.Items))
	for i, item := range doc.Items {
		if item.XMLName.Local != schema.item {
			continue
		}
		if item.Name == nil || item.Description == nil {
			return nil, fmt.Errorf("%w: %s #%d lacks name or description", errSchemaViolation, schema.item, i+1)
		}
		name := StripBracketed(*item.Name)
		if name == "" {
			continue
		}
		descriptions[name] = strings.TrimSpace(*item.Description)
	}

	if len(descriptions) == 0 {
		return nil, fmt.Errorf("%w: no %s elements", errSchemaViolation, schema.item)
	}
	return descriptions, nil
}
