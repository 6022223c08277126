package classifier

import (
	"cmp"
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"slices"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/textproc"
)

// Vectorizer maps documents to sparse feature vectors.
type Vectorizer interface {
	// Fit learns the vocabulary (and weights) from training documents.
	Fit(ctx context.Context, docs []string) error
	// Transform vectorizes docs with the fitted vocabulary. Tokens outside
	// the vocabulary are ignored.
	Transform(docs []string) ([]SparseVector, error)
	// NumFeatures is the width of the produced vectors.
	NumFeatures() int
}

// ErrNotFitted is returned when a component is used before Fit.
var ErrNotFitted = errors.NewStd("not fitted")

// ErrEmptyVocabulary is returned when training documents yield no tokens.
var ErrEmptyVocabulary = errors.NewStd("empty vocabulary")

// tokenizerFromKwargs reads the tokenization options shared by all vectorizers.
func tokenizerFromKwargs(kw *Kwargs) *textproc.Tokenizer {
	opts := textproc.Options{
		Lowercase:    kw.Bool("lowercase", true),
		StripAccents: kw.String("strip_accents", "") != "",
		MinTokenLen:  kw.Int("min_token_len", 2),
	}

	ngram := kw.IntPair("ngram_range", [2]int{1, 1})
	opts.NGramMin = kw.Int("ngram_min", ngram[0])
	opts.NGramMax = kw.Int("ngram_max", ngram[1])

	switch stop := kw.Strings("stop_words"); {
	case len(stop) == 1 && stop[0] == "english":
		opts.StopWords = textproc.EnglishStopWords
	case len(stop) > 0:
		opts.StopWords = textproc.StopWordSet(stop...)
	}

	return textproc.NewTokenizer(opts)
}

// CountVectorizer counts vocabulary tokens per document.
type CountVectorizer struct {
	tokenizer   *textproc.Tokenizer
	minDF       int
	maxDF       float64
	maxFeatures int
	binary      bool

	vocabulary map[string]int
}

func newCountVectorizer(kw *Kwargs) (*CountVectorizer, error) {
	cv := &CountVectorizer{
		tokenizer:   tokenizerFromKwargs(kw),
		minDF:       kw.Int("min_df", 1),
		maxDF:       kw.Float("max_df", 1.0),
		maxFeatures: kw.Int("max_features", 0),
		binary:      kw.Bool("binary", false),
	}
	if cv.minDF < 1 || cv.maxDF <= 0 || cv.maxDF > 1 || cv.maxFeatures < 0 {
		return nil, errors.Newf("%w: min_df >= 1, 0 < max_df <= 1, max_features >= 0", ErrInvalidKwargs).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return cv, nil
}

// Fit builds the vocabulary from docs, applying document frequency limits
// and the max_features cap (most frequent tokens first, ties by token).
func (cv *CountVectorizer) Fit(ctx context.Context, docs []string) error {
	_, err := cv.fitDF(ctx, docs)
	return err
}

// fitDF fits the vocabulary and returns per-feature document frequencies.
func (cv *CountVectorizer) fitDF(ctx context.Context, docs []string) ([]int, error) {
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		for _, tok := range cv.tokenizer.Tokens(doc) {
			tf[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}

	maxDocs := int(math.Floor(cv.maxDF * float64(len(docs))))
	terms := make([]string, 0, len(df))
	for tok, n := range df {
		if n >= cv.minDF && n <= maxDocs {
			terms = append(terms, tok)
		}
	}
	if len(terms) == 0 {
		return nil, errors.New(fmt.Errorf("%w: no tokens left after document frequency limits", ErrEmptyVocabulary)).
			Component("classifier").
			Category(errors.CategoryTraining).
			Context("documents", len(docs)).
			Build()
	}

	if cv.maxFeatures > 0 && len(terms) > cv.maxFeatures {
		slices.SortFunc(terms, func(a, b string) int {
			if tf[a] != tf[b] {
				return tf[b] - tf[a]
			}
			return cmp.Compare(a, b)
		})
		terms = terms[:cv.maxFeatures]
	}
	slices.Sort(terms)

	cv.vocabulary = make(map[string]int, len(terms))
	dfs := make([]int, len(terms))
	for i, tok := range terms {
		cv.vocabulary[tok] = i
		dfs[i] = df[tok]
	}
	return dfs, nil
}

// Transform counts vocabulary tokens in each document.
func (cv *CountVectorizer) Transform(docs []string) ([]SparseVector, error) {
	if cv.vocabulary == nil {
		return nil, errors.New(fmt.Errorf("count vectorizer: %w", ErrNotFitted)).
			Component("classifier").
			Category(errors.CategoryScoring).
			Build()
	}

	out := make([]SparseVector, len(docs))
	for i, doc := range docs {
		counts := make(map[int]float64)
		for _, tok := range cv.tokenizer.Tokens(doc) {
			if j, ok := cv.vocabulary[tok]; ok {
				if cv.binary {
					counts[j] = 1
				} else {
					counts[j]++
				}
			}
		}
		out[i] = fromCounts(counts)
	}
	return out, nil
}

// NumFeatures returns the vocabulary size.
func (cv *CountVectorizer) NumFeatures() int {
	return len(cv.vocabulary)
}

// Vocabulary returns the fitted tokens in feature order.
func (cv *CountVectorizer) Vocabulary() []string {
	terms := make([]string, len(cv.vocabulary))
	for tok, i := range cv.vocabulary {
		terms[i] = tok
	}
	return terms
}

// TfidfVectorizer weights counts by inverse document frequency.
type TfidfVectorizer struct {
	counts      *CountVectorizer
	smoothIDF   bool
	sublinearTF bool
	norm        string

	idf []float64
}

func newTfidfVectorizer(kw *Kwargs) (*TfidfVectorizer, error) {
	cv, err := newCountVectorizer(kw)
	if err != nil {
		return nil, err
	}
	tv := &TfidfVectorizer{
		counts:      cv,
		smoothIDF:   kw.Bool("smooth_idf", true),
		sublinearTF: kw.Bool("sublinear_tf", false),
		norm:        kw.String("norm", "l2"),
	}
	if tv.norm != "l2" && tv.norm != "none" && tv.norm != "" {
		return nil, errors.Newf("%w: norm must be \"l2\" or \"none\"", ErrInvalidKwargs).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return tv, nil
}

// Fit learns the vocabulary and idf weights:
// idf = ln((1+n)/(1+df)) + 1 when smoothing, ln(n/df) + 1 otherwise.
func (tv *TfidfVectorizer) Fit(ctx context.Context, docs []string) error {
	dfs, err := tv.counts.fitDF(ctx, docs)
	if err != nil {
		return err
	}

	n := float64(len(docs))
	tv.idf = make([]float64, len(dfs))
	for i, df := range dfs {
		if tv.smoothIDF {
			tv.idf[i] = math.Log((1+n)/(1+float64(df))) + 1
		} else {
			tv.idf[i] = math.Log(n/float64(df)) + 1
		}
	}
	return nil
}

// Transform returns tf-idf vectors, L2 normalized unless norm is "none".
func (tv *TfidfVectorizer) Transform(docs []string) ([]SparseVector, error) {
	vecs, err := tv.counts.Transform(docs)
	if err != nil {
		return nil, err
	}
	for _, v := range vecs {
		for j, i := range v.Indices {
			tf := v.Values[j]
			if tv.sublinearTF {
				tf = 1 + math.Log(tf)
			}
			v.Values[j] = tf * tv.idf[i]
		}
		if tv.norm == "l2" {
			v.normalizeL2()
		}
	}
	return vecs, nil
}

// NumFeatures returns the vocabulary size.
func (tv *TfidfVectorizer) NumFeatures() int {
	return tv.counts.NumFeatures()
}

// HashingVectorizer maps tokens to a fixed number of buckets with FNV-1a,
// so it needs no fitting and no vocabulary.
type HashingVectorizer struct {
	tokenizer *textproc.Tokenizer
	nFeatures int
	binary    bool
	norm      string
}

func newHashingVectorizer(kw *Kwargs) (*HashingVectorizer, error) {
	hv := &HashingVectorizer{
		tokenizer: tokenizerFromKwargs(kw),
		nFeatures: kw.Int("n_features", 1<<18),
		binary:    kw.Bool("binary", false),
		norm:      kw.String("norm", "l2"),
	}
	if hv.nFeatures < 1 {
		return nil, errors.Newf("%w: n_features must be positive", ErrInvalidKwargs).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return hv, nil
}

// Fit is a no-op.
func (hv *HashingVectorizer) Fit(context.Context, []string) error {
	return nil
}

// Transform hashes tokens into buckets.
func (hv *HashingVectorizer) Transform(docs []string) ([]SparseVector, error) {
	out := make([]SparseVector, len(docs))
	for i, doc := range docs {
		counts := make(map[int]float64)
		for _, tok := range hv.tokenizer.Tokens(doc) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			j := int(h.Sum32() % uint32(hv.nFeatures))
			if hv.binary {
				counts[j] = 1
			} else {
				counts[j]++
			}
		}
		v := fromCounts(counts)
		if hv.norm == "l2" {
			v.normalizeL2()
		}
		out[i] = v
	}
	return out, nil
}

// NumFeatures returns the bucket count.
func (hv *HashingVectorizer) NumFeatures() int {
	return hv.nFeatures
}
