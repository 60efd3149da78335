package domain //nolint:testpackage // Need access to unexported helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func validRecord() *PatientRecord {
	return NewPatientRecord("J Doe", "P1", SexMale, Years(34), "", NewRadiographImage("wrist.png", pngHeader))
}

func TestPatientRecordValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(p *PatientRecord)
		wantErr     bool
		errContains string
	}{
		{
			name:   "complete record",
			mutate: func(*PatientRecord) {},
		},
		{
			name:   "age zero is valid",
			mutate: func(p *PatientRecord) { p.Age = Years(0) },
		},
		{
			name:   "age upper bound is valid",
			mutate: func(p *PatientRecord) { p.Age = Years(150) },
		},
		{
			name:        "missing name",
			mutate:      func(p *PatientRecord) { p.Name = "" },
			wantErr:     true,
			errContains: "name",
		},
		{
			name:        "blank name",
			mutate:      func(p *PatientRecord) { p.Name = "   " },
			wantErr:     true,
			errContains: "name",
		},
		{
			name:        "missing patient id",
			mutate:      func(p *PatientRecord) { p.PatientID = "" },
			wantErr:     true,
			errContains: "patientid",
		},
		{
			name:        "missing sex",
			mutate:      func(p *PatientRecord) { p.Sex = "" },
			wantErr:     true,
			errContains: "sex",
		},
		{
			name:        "unknown sex",
			mutate:      func(p *PatientRecord) { p.Sex = "Unknown" },
			wantErr:     true,
			errContains: "sex",
		},
		{
			name:        "missing age",
			mutate:      func(p *PatientRecord) { p.Age = nil },
			wantErr:     true,
			errContains: "age",
		},
		{
			name:        "negative age",
			mutate:      func(p *PatientRecord) { p.Age = Years(-1) },
			wantErr:     true,
			errContains: "age",
		},
		{
			name:        "age above range",
			mutate:      func(p *PatientRecord) { p.Age = Years(151) },
			wantErr:     true,
			errContains: "age",
		},
		{
			name:        "missing image",
			mutate:      func(p *PatientRecord) { p.Image = nil },
			wantErr:     true,
			errContains: "image",
		},
		{
			name:        "empty image bytes",
			mutate:      func(p *PatientRecord) { p.Image.Data = []byte{} },
			wantErr:     true,
			errContains: "data",
		},
		{
			name:        "note too long",
			mutate:      func(p *PatientRecord) { p.ClinicalNote = strings.Repeat("x", 4001) },
			wantErr:     true,
			errContains: "clinicalnote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validRecord()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSubmission)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.False(t, p.IsComplete())
				return
			}
			require.NoError(t, err)
			assert.True(t, p.IsComplete())
		})
	}
}

func TestPatientRecordValidateNil(t *testing.T) {
	var p *PatientRecord
	assert.ErrorIs(t, p.Validate(), ErrInvalidSubmission)
	assert.Equal(t, 0, p.AgeYears())
}

func TestNewPatientRecordTrimsText(t *testing.T) {
	p := NewPatientRecord("  J Doe ", " P1 ", SexFemale, Years(40), "  wrist pain ", nil)
	assert.Equal(t, "J Doe", p.Name)
	assert.Equal(t, "P1", p.PatientID)
	assert.Equal(t, "wrist pain", p.ClinicalNote)
}

func TestPatientRecordClone(t *testing.T) {
	orig := validRecord()
	c := orig.Clone()

	require.NotSame(t, orig, c)
	require.NotSame(t, orig.Image, c.Image)
	require.NotSame(t, orig.Age, c.Age)

	c.Image.Data[0] = 0
	*c.Age = 99
	assert.Equal(t, byte(0x89), orig.Image.Data[0])
	assert.Equal(t, 34, orig.AgeYears())
	assert.Nil(t, (*PatientRecord)(nil).Clone())
}

func TestNewRadiographImage(t *testing.T) {
	t.Run("sniffs png content", func(t *testing.T) {
		img := NewRadiographImage("/tmp/uploads/wrist.bin", pngHeader)
		assert.Equal(t, "wrist.bin", img.Filename)
		assert.Equal(t, "image/png", img.MediaType)
		assert.True(t, strings.HasPrefix(img.PreviewURL, "data:image/png;base64,"))
		assert.Equal(t, len(pngHeader), img.Size())
	})

	t.Run("falls back to extension", func(t *testing.T) {
		img := NewRadiographImage("scan.jpg", []byte{0x00, 0x01, 0x02})
		assert.Equal(t, "image/jpeg", img.MediaType)
	})

	t.Run("unknown content", func(t *testing.T) {
		img := NewRadiographImage("scan", []byte{0x00, 0x01, 0x02})
		assert.Equal(t, "application/octet-stream", img.MediaType)
	})

	t.Run("copies caller bytes", func(t *testing.T) {
		data := []byte{0x89, 'P', 'N', 'G'}
		img := NewRadiographImage("a.png", data)
		data[0] = 0
		assert.Equal(t, byte(0x89), img.Data[0])
	})
}

func TestParseSex(t *testing.T) {
	tests := []struct {
		in      string
		want    Sex
		wantErr bool
	}{
		{in: "Male", want: SexMale},
		{in: "female", want: SexFemale},
		{in: " OTHER ", want: SexOther},
		{in: "m", want: SexMale},
		{in: "x", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSex(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSubmission)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
