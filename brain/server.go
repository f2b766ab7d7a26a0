package brain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Policy network layout: per layer, row-major weights then biases, matching
// the weight vector the genome produces. 7 -> 12 -> 12 -> 6.
var policyLayers = []int{7, 12, 12, 6}

// policyWeightCount is the expected flat weight vector length (330).
var policyWeightCount = func() int {
	n := 0
	for i := 1; i < len(policyLayers); i++ {
		n += policyLayers[i-1]*policyLayers[i] + policyLayers[i]
	}
	return n
}()

// policy is a fixed-weight feedforward net: tanh hidden layers, sigmoid
// output. It stands in for the remote service during development and tests;
// it does not learn.
type policy struct {
	weights []*mat.Dense
	biases  []*mat.VecDense
}

func newPolicy(flat []float64) (*policy, error) {
	if len(flat) != policyWeightCount {
		return nil, fmt.Errorf("expected %d weights, got %d", policyWeightCount, len(flat))
	}

	p := &policy{}
	off := 0
	for i := 1; i < len(policyLayers); i++ {
		in, out := policyLayers[i-1], policyLayers[i]
		w := mat.NewDense(out, in, append([]float64(nil), flat[off:off+in*out]...))
		off += in * out
		b := mat.NewVecDense(out, append([]float64(nil), flat[off:off+out]...))
		off += out
		p.weights = append(p.weights, w)
		p.biases = append(p.biases, b)
	}
	return p, nil
}

// forward maps a 7-value observation to a 6-value action.
func (p *policy) forward(input []float64) []float64 {
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	last := len(p.weights) - 1
	for i, w := range p.weights {
		rows, _ := w.Dims()
		out := mat.NewVecDense(rows, nil)
		out.MulVec(w, x)
		out.AddVec(out, p.biases[i])
		for k := 0; k < out.Len(); k++ {
			if i == last {
				out.SetVec(k, sigmoid(out.AtVec(k)))
			} else {
				out.SetVec(k, math.Tanh(out.AtVec(k)))
			}
		}
		x = out
	}

	result := make([]float64, x.Len())
	for k := range result {
		result[k] = x.AtVec(k)
	}
	return result
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Server is an in-process reference decision service speaking the
// line-delimited protocol. It evaluates registered fixed-weight policies
// and accepts training batches without learning from them.
type Server struct {
	log *zap.Logger

	mu       sync.Mutex
	policies map[int64]*policy
	trained  int // transitions accepted, for tests and logging
}

// NewServer creates a reference service.
func NewServer(log *zap.Logger) *Server {
	return &Server{
		log:      log.Named("braind"),
		policies: make(map[int64]*policy),
	}
}

// Serve accepts connections until the listener closes.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.log.Info("client connected", zap.String("remote", conn.RemoteAddr().String()))
		go s.HandleConn(conn)
	}
}

// HandleConn serves one connection: one JSON line in, one JSON line out.
func (s *Server) HandleConn(conn net.Conn) {
	defer conn.Close()
	c := newCodec(EncodingLines, conn)

	for {
		body, err := c.readMessage()
		if err != nil {
			return
		}
		resp := s.dispatch(body)
		payload, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := c.writeMessage(payload); err != nil {
			return
		}
	}
}

// dispatch routes one request by its type field. Unknown kinds produce an
// error response rather than closing the connection.
func (s *Server) dispatch(body []byte) any {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return map[string]string{"error": "malformed message"}
	}

	switch envelope.Type {
	case kindInit:
		var req initRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return map[string]string{"error": "malformed init"}
		}
		return s.handleInit(req)
	case kindEvaluate:
		var req evaluateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return map[string]string{"error": "malformed evaluate"}
		}
		return s.handleEvaluate(req)
	case kindTrain:
		var req trainRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return map[string]string{"error": "malformed train"}
		}
		return s.handleTrain(req)
	default:
		return map[string]string{"error": fmt.Sprintf("unknown message type %q", envelope.Type)}
	}
}

func (s *Server) handleInit(req initRequest) initResponse {
	results := make(map[int64]bool, len(req.Brains))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range req.Brains {
		p, err := newPolicy(b.Weights)
		if err != nil {
			s.log.Warn("rejecting brain", zap.Int64("id", b.ID), zap.Error(err))
			results[b.ID] = false
			continue
		}
		s.policies[b.ID] = p
		results[b.ID] = true
	}
	return initResponse{Status: statusInitialized, Results: results}
}

func (s *Server) handleEvaluate(req evaluateRequest) evaluateResponse {
	results := make(map[int64]JetForces, len(req.Sensors))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sensor := range req.Sensors {
		p, ok := s.policies[sensor.ID]
		if !ok {
			// Unregistered creature: zero action, matching the original
			// service's degradation.
			results[sensor.ID] = JetForces{}
			continue
		}
		results[sensor.ID] = JetForcesFromVector(p.forward(sensor.Vector()))
	}
	return evaluateResponse{Status: statusEvaluated, Results: results}
}

func (s *Server) handleTrain(req trainRequest) trainResponse {
	info := make(map[int64]bool, len(req.Training))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range req.Training {
		_, known := s.policies[tr.ID]
		info[tr.ID] = known
		s.trained++
	}
	return trainResponse{Status: statusTrained, Info: info}
}

// TrainedCount reports how many transitions the server has accepted.
func (s *Server) TrainedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trained
}
