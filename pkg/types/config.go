// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-indexer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ArxivConfig holds endpoints and pacing for every request made to arXiv.
type ArxivConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the Atom query endpoint used for daily listings.
	APIURL string `json:"api_url" yaml:"api_url"`

	// SourceURL, PDFURL and AbsURL are prefixes; the arXiv ID is appended.
	SourceURL string `json:"source_url" yaml:"source_url"`
	PDFURL    string `json:"pdf_url" yaml:"pdf_url"`
	AbsURL    string `json:"abs_url" yaml:"abs_url"`

	// RequestInterval is the minimum spacing between any two arXiv requests
	// (default 3s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval"`

	// PageSize is the number of entries requested per listing page (default 1000).
	PageSize int `json:"page_size" yaml:"page_size"`

	// Categories are the subject categories imported each day.
	Categories []string `json:"categories" yaml:"categories"`
}

// PDFBackend identifies the tool used to linearize PDF text.
type PDFBackend string

const (
	PDFBackendNative    PDFBackend = "native"
	PDFBackendPdftotext PDFBackend = "pdftotext"
)

// EmbeddingBackend identifies the embedding provider.
type EmbeddingBackend string

const (
	EmbeddingOllama EmbeddingBackend = "ollama"
	EmbeddingGemini EmbeddingBackend = "gemini"
)

// EmbeddingConfig holds settings for the text embedding service.
type EmbeddingConfig struct {
	// Backend selects the provider: ollama or gemini.
	Backend EmbeddingBackend `json:"backend" yaml:"backend"`

	// Host is the Ollama base URL (e.g. "http://localhost:11434").
	Host string `json:"host" yaml:"host"`

	// Model is the embedding model name.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// CacheSize bounds the in-memory embedding cache; 0 disables it.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// MaxRetries is the number of retry attempts when the service is busy (default 4).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// VectorStoreConfig holds Qdrant connection and collection settings.
type VectorStoreConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	UseTLS bool   `json:"use_tls" yaml:"use_tls"`

	// Collection is the collection holding one point per article.
	Collection string `json:"collection" yaml:"collection"`

	// VectorName is the named vector slot used for abstracts.
	VectorName string `json:"vector_name" yaml:"vector_name"`

	// Dimensions is the vector width used when the collection is created.
	Dimensions uint64 `json:"dimensions" yaml:"dimensions"`

	// Distance is the similarity metric: dot, cosine, euclid or manhattan
	// (default dot).
	Distance string `json:"distance" yaml:"distance"`
}

// RegistryConfig locates the on-disk article registry.
type RegistryConfig struct {
	Root string `json:"root" yaml:"root"`
}

// CatalogConfig locates the local SQLite full-text catalog.
type CatalogConfig struct {
	// Dir holds catalog.db and export files.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ImportConfig holds settings for the daily import driver.
type ImportConfig struct {
	// PDFBackend selects the PDF text tool.
	PDFBackend PDFBackend `json:"pdf_backend" yaml:"pdf_backend"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Arxiv       ArxivConfig       `json:"arxiv" yaml:"arxiv"`
	Import      ImportConfig      `json:"import" yaml:"import"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	VectorStore VectorStoreConfig `json:"vector_store" yaml:"vector_store"`
	Registry    RegistryConfig    `json:"registry" yaml:"registry"`
	Catalog     CatalogConfig     `json:"catalog" yaml:"catalog"`
}
