// Package engines contains the TTS backends: Google Cloud TTS (online,
// authenticated), gTTS (online, free) and Piper (offline). Every engine
// returns MP3 bytes and implements tts.Engine. New selects one by
// tts.EngineType and optionally wraps it in a disk-backed audio cache.
package engines
