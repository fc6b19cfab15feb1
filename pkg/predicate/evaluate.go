package predicate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/sparql"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

// DefaultTimeout is the wall-clock budget applied when Evaluate is
// called with timeout <= 0.
const DefaultTimeout = 5 * time.Second

// Evaluate decides whether def fires against snap. Evaluation runs in a
// goroutine bounded by timeout (default DefaultTimeout); on expiry the
// verdict carries an ErrTimeout and the hook does not fire.
func Evaluate(ctx context.Context, snap *store.Snapshot, def Definition, baselines BaselineStore, timeout time.Duration) Verdict {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan Verdict, 1)
	go func() {
		result <- evaluateSync(snap, def, baselines)
	}()

	select {
	case v := <-result:
		return v
	case <-ctx.Done():
		return Verdict{Err: &ErrTimeout{HookID: def.BaselineID, Budget: timeout.String()}}
	}
}

func evaluateSync(snap *store.Snapshot, def Definition, baselines BaselineStore) Verdict {
	switch def.Kind {
	case KindAsk:
		return evaluateAsk(snap, def)
	case KindSelectThreshold:
		return evaluateSelectThreshold(snap, def)
	case KindResultDelta:
		return evaluateResultDelta(snap, def, baselines)
	default:
		return Verdict{Err: &Error{Reason: "unknown predicate kind"}}
	}
}

func evaluateAsk(snap *store.Snapshot, def Definition) Verdict {
	q, err := sparql.Parse(def.Query)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}
	ok, err := sparql.Ask(snap, q)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}
	return Verdict{Fired: ok}
}

func toFloat(t quad.Term) (float64, bool) {
	if t.Kind != quad.Literal {
		return 0, false
	}
	if t.Datatype == quad.XSDBoolean {
		if t.Value == "true" {
			return 1, true
		}
		return 0, true
	}
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func evaluateSelectThreshold(snap *store.Snapshot, def Definition) Verdict {
	q, err := sparql.Parse(def.Query)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}
	rows, err := sparql.Select(snap, q)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}

	var values []float64
	for _, r := range rows {
		t, ok := r[def.Variable]
		if !ok {
			continue
		}
		if f, ok := toFloat(t); ok {
			values = append(values, f)
		}
	}

	reducer := def.Reducer
	if reducer == "" {
		reducer = ReducerAny
	}

	switch reducer {
	case ReducerAny:
		for _, v := range values {
			if compareOp(def.Op, v, def.Value) {
				return Verdict{Fired: true}
			}
		}
		return Verdict{Fired: false}
	case ReducerAll:
		if len(values) == 0 {
			return Verdict{Fired: false}
		}
		for _, v := range values {
			if !compareOp(def.Op, v, def.Value) {
				return Verdict{Fired: false}
			}
		}
		return Verdict{Fired: true}
	case ReducerCount:
		return Verdict{Fired: compareOp(def.Op, float64(len(values)), def.Value)}
	case ReducerSum:
		var s float64
		for _, v := range values {
			s += v
		}
		return Verdict{Fired: compareOp(def.Op, s, def.Value)}
	case ReducerAvg:
		if len(values) == 0 {
			return Verdict{Fired: false}
		}
		var s float64
		for _, v := range values {
			s += v
		}
		return Verdict{Fired: compareOp(def.Op, s/float64(len(values)), def.Value)}
	default:
		return Verdict{Err: &Error{Reason: "unknown reducer " + string(reducer)}}
	}
}

func evaluateResultDelta(snap *store.Snapshot, def Definition, baselines BaselineStore) Verdict {
	q, err := sparql.Parse(def.Query)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}
	rows, err := sparql.Select(snap, q)
	if err != nil {
		return Verdict{Err: &Error{Reason: err.Error()}}
	}

	hash := stableSetHash(rows, def.KeyVariables)
	var oldHash string
	if baselines != nil {
		oldHash, _ = baselines.Get(def.BaselineID)
	}
	return Verdict{
		Fired:           hash != oldHash,
		NewBaselineHash: hash,
		BaselineID:      def.BaselineID,
	}
}

func stableSetHash(rows []sparql.Binding, keyVars []string) string {
	rowStrings := make([]string, 0, len(rows))
	for _, r := range rows {
		parts := make([]string, 0, len(keyVars))
		for _, k := range keyVars {
			if t, ok := r[k]; ok {
				parts = append(parts, k+"="+t.Key())
			} else {
				parts = append(parts, k+"=<unbound>")
			}
		}
		rowStrings = append(rowStrings, strings.Join(parts, "\x00"))
	}
	sort.Strings(rowStrings)
	sum := sha256.Sum256([]byte(strings.Join(rowStrings, "\x1e")))
	return hex.EncodeToString(sum[:])
}
