package config

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}

// NewGraphForTest creates a Graph config for testing purposes
func NewGraphForTest(path string) *Graph {
	return &Graph{path: path}
}

// NewSpeechForTest creates a Speech config for testing purposes
func NewSpeechForTest(enabled bool, language string) *Speech {
	return &Speech{
		enabled:  enabled,
		language: language,
	}
}

// NewSynthesisForTest creates a Synthesis config for testing purposes
func NewSynthesisForTest(apiKey, voice string) *Synthesis {
	return &Synthesis{
		apiKey: apiKey,
		voice:  voice,
	}
}

// NewStorageForTest creates a Storage config for testing purposes
func NewStorageForTest(backend, dir, bucket string) *Storage {
	return &Storage{
		backend: backend,
		dir:     dir,
		bucket:  bucket,
	}
}
