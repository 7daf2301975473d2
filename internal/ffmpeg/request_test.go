package ffmpeg

import (
	"strings"
	"testing"
)

func sampleRequest() Request {
	return Request{
		Input:          "/videos/c1/l1.mp4",
		OutputDir:      "/out/c1/l1/low",
		Width:          426,
		Height:         360,
		AudioBitrate:   "96k",
		VideoCodec:     "h264_nvenc",
		Preset:         "slow",
		Quality:        23,
		SegmentSeconds: 10,
		PlaylistType:   "vod",
		BaseURL:        "http://host/seg/c1/l1/low/",
		SegmentPattern: "%03d.ts",
		PlaylistName:   "master.m3u8",
	}
}

func TestBuildArgsMatchesHLSLayout(t *testing.T) {
	got := strings.Join(BuildArgs(sampleRequest()), " ")
	want := "-hide_banner -y -nostats -progress pipe:1 -i /videos/c1/l1.mp4 " +
		"-vf scale=w=426:h=360:force_original_aspect_ratio=decrease " +
		"-c:v h264_nvenc -preset slow -cq:v 23 -c:a aac -b:a 96k " +
		"-f hls -hls_time 10 -hls_list_size 0 -hls_playlist_type vod " +
		"-hls_base_url http://host/seg/c1/l1/low/ " +
		"-hls_segment_filename /out/c1/l1/low/%03d.ts /out/c1/l1/low/master.m3u8"
	if got != want {
		t.Fatalf("unexpected args:\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildArgsQualityFlagPerCodec(t *testing.T) {
	tests := []struct {
		codec string
		flag  string
	}{
		{"h264_nvenc", "-cq:v"},
		{"libx264", "-crf"},
		{"h264_qsv", "-global_quality"},
	}
	for _, tt := range tests {
		req := sampleRequest()
		req.VideoCodec = tt.codec
		args := strings.Join(BuildArgs(req), " ")
		if !strings.Contains(args, tt.flag+" 23") {
			t.Errorf("%s: expected %s in %q", tt.codec, tt.flag, args)
		}
	}

	req := sampleRequest()
	req.Quality = 0
	req.Preset = ""
	args := strings.Join(BuildArgs(req), " ")
	if strings.Contains(args, "-cq:v") || strings.Contains(args, "-preset") {
		t.Fatalf("expected quality and preset omitted, got %q", args)
	}
}

func TestRequestValidate(t *testing.T) {
	if err := sampleRequest().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	mutations := map[string]func(*Request){
		"input":    func(r *Request) { r.Input = "" },
		"output":   func(r *Request) { r.OutputDir = " " },
		"width":    func(r *Request) { r.Width = 0 },
		"bitrate":  func(r *Request) { r.AudioBitrate = "" },
		"segments": func(r *Request) { r.SegmentSeconds = 0 },
		"playlist": func(r *Request) { r.PlaylistName = "" },
	}
	for name, mutate := range mutations {
		req := sampleRequest()
		mutate(&req)
		if err := req.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
