package store

// Stage is one step of the document codec pipeline. Encode runs on the
// write path, Decode on the read path. Stages must be inverses: for any
// body, Decode(Encode(body)) == body.
type Stage interface {
	// Encode transforms a document body on its way to disk.
	Encode(collection string, body []byte) ([]byte, error)
	// Decode reverses Encode on the way back out.
	Decode(collection string, body []byte) ([]byte, error)
}

// Codec chains stages in write order: Encode applies them first to last,
// Decode last to first. The store builds validate -> encrypt; tests can
// build pipelines with any subset to exercise stages in isolation.
type Codec struct {
	stages []Stage
}

// NewCodec builds a pipeline from stages in write order.
func NewCodec(stages ...Stage) *Codec {
	return &Codec{stages: stages}
}

// Encode runs the body through every stage toward disk.
func (c *Codec) Encode(collection string, body []byte) ([]byte, error) {
	var err error
	for _, s := range c.stages {
		if body, err = s.Encode(collection, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// Decode reverses the pipeline, last stage first.
func (c *Codec) Decode(collection string, body []byte) ([]byte, error) {
	var err error
	for i := len(c.stages) - 1; i >= 0; i-- {
		if body, err = c.stages[i].Decode(collection, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}
