// Package manifest reads and writes audio generation manifests and builds
// them from curriculum listening files.
//
// Two shapes are accepted. The audio-files shape is the one the manifest
// builder writes:
//
//	{"totalAudioFiles": 1, "audioFiles": [{"id": "week1_main", "script": "...", "audioPath": "/audio/week1/main.mp3", "speed": 1.0}]}
//
// The items shape is a bare list:
//
//	[{"id": "q1", "text": "...", "outfile": "q1.mp3", "rate": 0.9}]
package manifest
