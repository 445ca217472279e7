package config

// NewPolicyForTest creates a Policy config for testing purposes
func NewPolicyForTest(path string) *Policy {
	return &Policy{path: path}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwtSecret string) *Auth {
	return &Auth{jwtSecret: jwtSecret}
}

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}
