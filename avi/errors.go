package avi

import "github.com/charlescerisier/avixer/extractor"

// wrapf builds an extractor.Error tagged with this package's operation name,
// the same role the teacher's *AVIError{Op, Err} played before every error
// site carried a Kind.
func wrapf(kind extractor.Kind, op string, err error) *extractor.Error {
	return extractor.NewError(kind, op, err)
}

func eofErr(op string, err error) error        { return wrapf(extractor.KindEof, op, err) }
func malformedErr(op string, err error) error  { return wrapf(extractor.KindMalformed, op, err) }
func unsupportedErr(op string, err error) error { return wrapf(extractor.KindUnsupported, op, err) }
func recoverableErr(op string, err error) error { return wrapf(extractor.KindRecoverable, op, err) }
