package classifier

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/tagwise/tagwise/internal/errors"
)

var (
	// ErrUnknownVectorizer is returned for an unregistered vectorizer name.
	ErrUnknownVectorizer = errors.NewStd("unknown vectorizer")
	// ErrUnknownModel is returned for an unregistered classifier name.
	ErrUnknownModel = errors.NewStd("unknown classifier")
)

// VectorizerFactory builds a vectorizer from its keyword arguments.
type VectorizerFactory func(kw *Kwargs) (Vectorizer, error)

// ModelFactory builds a model from its keyword arguments.
type ModelFactory func(kw *Kwargs) (Model, error)

var (
	registryMu  sync.RWMutex
	vectorizers = map[string]VectorizerFactory{}
	models      = map[string]ModelFactory{}
)

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegisterVectorizer makes a vectorizer available under each of names.
func RegisterVectorizer(f VectorizerFactory, names ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, n := range names {
		vectorizers[normalizeName(n)] = f
	}
}

// RegisterModel makes a model available under each of names.
func RegisterModel(f ModelFactory, names ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, n := range names {
		models[normalizeName(n)] = f
	}
}

// Vectorizers lists registered vectorizer names, sorted.
func Vectorizers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(vectorizers))
}

// Models lists registered model names, sorted.
func Models() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(models))
}

func lookupVectorizer(name string) (VectorizerFactory, error) {
	registryMu.RLock()
	f, ok := vectorizers[normalizeName(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf("%w: %q", ErrUnknownVectorizer, name).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Context("available", strings.Join(Vectorizers(), ",")).
			Build()
	}
	return f, nil
}

func lookupModel(name string) (ModelFactory, error) {
	registryMu.RLock()
	f, ok := models[normalizeName(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf("%w: %q", ErrUnknownModel, name).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Context("available", strings.Join(Models(), ",")).
			Build()
	}
	return f, nil
}

func init() {
	RegisterVectorizer(func(kw *Kwargs) (Vectorizer, error) { return newCountVectorizer(kw) },
		"count", "CountVectorizer", "sklearn.feature_extraction.text.CountVectorizer")
	RegisterVectorizer(func(kw *Kwargs) (Vectorizer, error) { return newTfidfVectorizer(kw) },
		"tfidf", "TfidfVectorizer", "sklearn.feature_extraction.text.TfidfVectorizer")
	RegisterVectorizer(func(kw *Kwargs) (Vectorizer, error) { return newHashingVectorizer(kw) },
		"hashing", "HashingVectorizer", "sklearn.feature_extraction.text.HashingVectorizer")

	RegisterModel(func(kw *Kwargs) (Model, error) { return newMultinomialNB(kw) },
		"multinomial_nb", "MultinomialNB", "sklearn.naive_bayes.MultinomialNB")
	RegisterModel(func(kw *Kwargs) (Model, error) { return newLogisticRegression(kw) },
		"logistic_regression", "LogisticRegression", "sklearn.linear_model.LogisticRegression")
}
