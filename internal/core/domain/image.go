package domain

// Image represents a container image produced by a build.
type Image struct {
	ID            string   `json:"id"`
	Tags          []string `json:"tags"`
	WorkingDir    string   `json:"working_dir"`
	ExposedPorts  []string `json:"exposed_ports"` // e.g. "8000/tcp"
	Cmd           []string `json:"cmd"`
	ContextDigest string   `json:"context_digest"`
}
