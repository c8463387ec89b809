package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminal punctuation only",
			text: "床前明月光，疑是地上霜。举头望明月，低头思故乡。",
			want: []string{"床前明月光，疑是地上霜", "举头望明月，低头思故乡"},
		},
		{
			name: "noise and whitespace removed",
			text: "白日依山尽[1]，黄河入海流【注】。\n欲穷千里目（一作望）， 更上一层楼(注)<br>！",
			want: []string{"白日依山尽，黄河入海流", "欲穷千里目，更上一层楼"},
		},
		{
			name: "short fragments dropped",
			text: "呜呼！噫吁嚱，危乎高哉！蜀道之难？",
			want: []string{"噫吁嚱，危乎高哉", "蜀道之难"},
		},
		{
			name: "no split on comma or semicolon",
			text: "学而时习之；不亦说乎、有朋自远方来",
			want: []string{"学而时习之；不亦说乎、有朋自远方来"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestSplitSentences_AllFragmentsAtLeastFourRunes(t *testing.T) {
	for _, s := range SplitSentences("一。二三。四五六。七八九十。甲乙丙丁戊！") {
		assert.GreaterOrEqual(t, len([]rune(s)), MinSentenceRunes)
	}
}

func TestNormalizer_Clean(t *testing.T) {
	n := newTestNormalizer()

	assert.Equal(t, "李白", n.Clean("  李白 \n", NameLimit))
	assert.Equal(t, "春眠", n.Clean("春眠不觉晓", 2))
	assert.Equal(t, "", n.Clean("   ", TitleLimit))
}

func TestNormalizer_ConvertTraditional(t *testing.T) {
	n, err := NewNormalizer()
	require.NoError(t, err)

	assert.Equal(t, "学而时习之", n.Convert("學而時習之"))
	assert.Equal(t, "", n.Convert(""))
}

type failingConverter struct{}

func (failingConverter) Convert(string) (string, error) { return "", assert.AnError }

func TestNormalizer_ConvertFailureReturnsInput(t *testing.T) {
	n := NewNormalizerWith(failingConverter{})
	assert.Equal(t, "將進酒", n.Convert("將進酒"))
}
