// Package traffic generates synthetic connection records shaped like the
// KDD Cup 99 feature set, for demos and smoke tests of the classifier.
package traffic

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// DefaultSamples is how many records a simulation request returns.
const DefaultSamples = 5

// MaxSamples caps a single simulation request.
const MaxSamples = 100

var (
	protocols = []string{"tcp", "udp", "icmp"}
	services  = []string{"http", "smtp", "ftp", "ssh", "telnet"}
	flags     = []string{"SF", "S0", "REJ", "RSTR"}
)

// poissonFeatures maps count-like features to their mean.
var poissonFeatures = []struct {
	name   string
	lambda float64
}{
	{"wrong_fragment", 0.1},
	{"urgent", 0.01},
	{"hot", 0.5},
	{"num_failed_logins", 0.1},
	{"num_compromised", 0.1},
	{"root_shell", 0.05},
	{"su_attempted", 0.01},
	{"num_root", 0.1},
	{"num_file_creations", 0.1},
	{"num_shells", 0.05},
	{"num_access_files", 0.1},
	{"num_outbound_cmds", 0.01},
	{"count", 10},
	{"srv_count", 8},
	{"dst_host_count", 50},
	{"dst_host_srv_count", 30},
}

var rateFeatures = []string{
	"serror_rate", "srv_serror_rate", "rerror_rate", "srv_rerror_rate",
	"same_srv_rate", "diff_srv_rate", "srv_diff_host_rate",
	"dst_host_same_srv_rate", "dst_host_diff_srv_rate", "dst_host_same_src_port_rate",
	"dst_host_srv_diff_host_rate", "dst_host_serror_rate", "dst_host_srv_serror_rate",
	"dst_host_rerror_rate", "dst_host_srv_rerror_rate",
}

// Generator draws synthetic records. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a Generator seeded from the runtime's random source.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededGenerator returns a deterministic Generator.
func NewSeededGenerator(seed1, seed2 uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// Samples returns n records; n is clamped to [1, MaxSamples].
func (g *Generator) Samples(n int) []map[string]any {
	n = min(max(n, 1), MaxSamples)

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]map[string]any, n)
	for i := range out {
		out[i] = g.sample()
	}
	return out
}

func (g *Generator) sample() map[string]any {
	r := g.rnd
	s := make(map[string]any, 42)

	s["duration"] = r.ExpFloat64() * 50
	s["protocol_type"] = protocols[r.IntN(len(protocols))]
	s["service"] = services[r.IntN(len(services))]
	s["flag"] = flags[r.IntN(len(flags))]
	s["src_bytes"] = int(r.ExpFloat64() * 1000)
	s["dst_bytes"] = int(r.ExpFloat64() * 500)
	s["land"] = g.bernoulli(0.01)
	s["logged_in"] = g.bernoulli(0.7)
	s["is_host_login"] = g.bernoulli(0.05)
	s["is_guest_login"] = g.bernoulli(0.05)

	for _, f := range poissonFeatures {
		s[f.name] = g.poisson(f.lambda)
	}
	for _, name := range rateFeatures {
		s[name] = r.Float64()
	}

	s["src_ip"] = fmt.Sprintf("192.168.1.%d", 1+r.IntN(254))
	return s
}

func (g *Generator) bernoulli(p float64) int {
	if g.rnd.Float64() < p {
		return 1
	}
	return 0
}

// poisson uses Knuth's multiplication method, fine for the small means here.
func (g *Generator) poisson(lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rnd.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
