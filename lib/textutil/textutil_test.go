package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstBoldLink(t *testing.T) {
	testCases := []struct {
		text     string
		expected string
	}{
		{
			text:     `[[File:Zoo TV.jpg|thumb]] The '''[[Zoo TV Tour]]''' was a worldwide concert tour by the rock band [[U2]].`,
			expected: "Zoo TV Tour",
		},
		{
			text:     `'''[[mosaics of Delos|The mosaics of Delos]]''' are a significant body of ancient Greek art.`,
			expected: "mosaics of Delos",
		},
		{
			text:     `'''[[SMS Zähringen]]''' was the third of five pre-dreadnought battleships.`,
			expected: "SMS Zähringen",
		},
		{
			text:     `'''''[[The Cabinet of Dr. Caligari]]''''' is a 1920 German silent horror film.`,
			expected: "The Cabinet of Dr. Caligari",
		},
		{
			text:     `'''[[ Hurricane ]]s''' form over warm water.`,
			expected: "Hurricane",
		},
		{
			text:     `The <b>[[Battle of Hastings|battle]]</b> was fought on 14 October 1066.`,
			expected: "Battle of Hastings",
		},
		{
			text:     `No bold link here, only a [[plain link]].`,
			expected: "",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, FirstBoldLink(test.text), test.text)
	}
}

func TestConfigLines(t *testing.T) {
	text := "# images on the main page\nMain Page\n\n  Wikipedia:Picture of the day/Tomorrow  \n#Template:POTD\n"
	require.Equal(t, []string{
		"Main Page",
		"Wikipedia:Picture of the day/Tomorrow",
	}, ConfigLines(text))
}
