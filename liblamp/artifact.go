package liblamp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/2x3systems/golamp/golamp"
	"github.com/gogo/protobuf/proto"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

/***

Artifact formats:

	json:  {"nBits":N,"dict":[v0,v1,...]}   (what downstream decoders index directly)

	bin:   "LDX1", varint(nBits), varint(len(dict)), zigzag varint(v0), zigzag varint(v1), ...

Either may be wrapped in a zstd or lz4 frame; LoadArtifact sniffs the frame and format magic.

***/

var (
	binaryMagic = []byte("LDX1")
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
)

// CheckArtifact performs the checks a downstream decoder performs on load.
func CheckArtifact(art *golamp.Artifact) error {
	if art == nil {
		return errors.Wrap(golamp.ErrBadArtifact, "nil artifact")
	}
	if art.NumBits < 1 || art.NumBits > golamp.MaxNumBits {
		return errors.Wrapf(golamp.ErrBadArtifact, "nBits must be in 1..%d, got %d", golamp.MaxNumBits, art.NumBits)
	}
	if want := 1 << uint(art.NumBits); len(art.Dict) != want {
		return errors.Wrapf(golamp.ErrBadArtifact, "dict must contain all %d values, got %d", want, len(art.Dict))
	}
	for i, v := range art.Dict {
		if v < golamp.Unmapped || v > math.MaxInt32 {
			return errors.Wrapf(golamp.ErrBadArtifact, "dict[%d] = %d is not a lamp ID", i, v)
		}
	}
	return nil
}

// MarshalArtifact encodes art in the given format.
func MarshalArtifact(art *golamp.Artifact, format golamp.Format) ([]byte, error) {
	if err := CheckArtifact(art); err != nil {
		return nil, err
	}

	switch format {
	case golamp.FormatJSON, "":
		return json.Marshal(art)

	case golamp.FormatBinary:
		buf := proto.NewBuffer(append(make([]byte, 0, 16+2*len(art.Dict)), binaryMagic...))
		if err := buf.EncodeVarint(uint64(art.NumBits)); err != nil {
			return nil, err
		}
		if err := buf.EncodeVarint(uint64(len(art.Dict))); err != nil {
			return nil, err
		}
		for _, v := range art.Dict {
			if err := buf.EncodeZigzag64(uint64(v)); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	}

	return nil, errors.Wrapf(golamp.ErrBadConfig, "unknown artifact format %q", format)
}

// UnmarshalArtifact decodes an uncompressed artifact, detecting its format.
func UnmarshalArtifact(data []byte) (*golamp.Artifact, error) {
	art := &golamp.Artifact{}

	if bytes.HasPrefix(data, binaryMagic) {
		buf := proto.NewBuffer(data[len(binaryMagic):])
		numBits, err := buf.DecodeVarint()
		if err != nil {
			return nil, errors.Wrap(golamp.ErrBadArtifact, err.Error())
		}
		count, err := buf.DecodeVarint()
		if err != nil {
			return nil, errors.Wrap(golamp.ErrBadArtifact, err.Error())
		}
		if numBits > golamp.MaxNumBits || count != uint64(1)<<numBits {
			return nil, errors.Wrapf(golamp.ErrBadArtifact, "header nBits=%d count=%d", numBits, count)
		}
		art.NumBits = int(numBits)
		art.Dict = make([]int64, count)
		for i := range art.Dict {
			v, err := buf.DecodeZigzag64()
			if err != nil {
				return nil, errors.Wrapf(golamp.ErrBadArtifact, "dict[%d]: %v", i, err)
			}
			art.Dict[i] = int64(v)
		}
	} else {
		if err := json.Unmarshal(data, art); err != nil {
			return nil, errors.Wrap(golamp.ErrBadArtifact, err.Error())
		}
	}

	if err := CheckArtifact(art); err != nil {
		return nil, err
	}
	return art, nil
}

// WriteArtifact encodes art to w in the given format and compression.
func WriteArtifact(w io.Writer, art *golamp.Artifact, format golamp.Format, comp golamp.Compression) error {
	data, err := MarshalArtifact(art, format)
	if err != nil {
		return err
	}

	switch comp {
	case golamp.CompressNone, "":
		_, err = w.Write(data)
		return err

	case golamp.CompressZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return errors.Wrap(err, "failed to create compressor")
		}
		if _, err = enc.Write(data); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()

	case golamp.CompressLZ4:
		enc := lz4.NewWriter(w)
		if _, err = enc.Write(data); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	}

	return errors.Wrapf(golamp.ErrBadConfig, "unknown compression %q", comp)
}

// ReadArtifact decodes an artifact from r, detecting compression and format.
func ReadArtifact(r io.Reader) (*golamp.Artifact, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)

	var src io.Reader = br
	switch {
	case bytes.Equal(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create decompressor")
		}
		defer dec.Close()
		src = dec
	case bytes.Equal(head, lz4Magic):
		src = lz4.NewReader(br)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(golamp.ErrBadArtifact, err.Error())
	}
	return UnmarshalArtifact(data)
}

// SaveArtifact writes art to pathname.  The file only appears once it is complete.
func SaveArtifact(pathname string, art *golamp.Artifact, format golamp.Format, comp golamp.Compression) error {
	staged, err := StageArtifact(pathname, art, format, comp)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// StagedArtifact is a fully written artifact waiting beside its destination.
type StagedArtifact struct {
	tmpName  string
	pathname string
}

// StageArtifact writes art to a temp file in the directory of pathname.
// Commit moves it into place; Discard removes it.
func StageArtifact(pathname string, art *golamp.Artifact, format golamp.Format, comp golamp.Compression) (*StagedArtifact, error) {
	tmp, err := os.CreateTemp(filepath.Dir(pathname), filepath.Base(pathname)+".*.tmp")
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(tmp)
	err = WriteArtifact(w, art, format, comp)
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	return &StagedArtifact{
		tmpName:  tmp.Name(),
		pathname: pathname,
	}, nil
}

// Commit renames the staged file to its destination.
func (staged *StagedArtifact) Commit() error {
	if staged.tmpName == "" {
		return errors.Wrapf(golamp.ErrBadArtifact, "%s already committed or discarded", staged.pathname)
	}
	err := os.Rename(staged.tmpName, staged.pathname)
	if err != nil {
		os.Remove(staged.tmpName)
	}
	staged.tmpName = ""
	return err
}

// Discard removes the staged file.  It is a no-op after Commit.
func (staged *StagedArtifact) Discard() {
	if staged.tmpName != "" {
		os.Remove(staged.tmpName)
		staged.tmpName = ""
	}
}

// LoadArtifact reads an artifact written by SaveArtifact.
func LoadArtifact(pathname string) (*golamp.Artifact, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadArtifact(file)
}
