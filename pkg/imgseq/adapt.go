package imgseq

import "fmt"

// SeqFunc is an operation defined over image sequences.
type SeqFunc func(Sequence) (Sequence, error)

// wrapOne lifts a single image into a sequence of length one. Module
// images become a module sequence so geometry-aware operations keep
// working; everything else becomes a plain sequence. The wrapper never
// assumes a shared camera.
func wrapOne(img Image) (Sequence, error) {
	if img == nil {
		return nil, fmt.Errorf("image must not be nil")
	}
	if _, ok := img.(ModuleImager); ok {
		return NewModuleImageSequence([]Image{img}, false, false)
	}
	return NewImageSequence([]Image{img}, false, false)
}

// ApplyOne runs a sequence operation on a single image: the image is
// wrapped in a sequence of length one, fn is applied, and the first
// image of the result is returned. Callers holding a sequence call fn
// directly instead.
func ApplyOne(img Image, fn SeqFunc) (Image, error) {
	res, err := ApplyOneSeq(img, fn)
	if err != nil {
		return nil, err
	}
	return res.At(0), nil
}

// ApplyOneSeq runs a sequence operation on a single image and returns
// the whole result sequence, for operations whose result is genuinely a
// collection.
func ApplyOneSeq(img Image, fn SeqFunc) (Sequence, error) {
	seq, err := wrapOne(img)
	if err != nil {
		return nil, err
	}
	res, err := fn(seq)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Len() == 0 {
		return nil, fmt.Errorf("%w: operation returned no images", ErrEmptySequence)
	}
	return res, nil
}
