package main

import (
	"fmt"
	"strconv"
	"strings"
)

const toolName = "zentropy-bench"

// Set at link time: -ldflags "-X main.GitSHA1=... -X main.GitDirty=..."
var GitSHA1 string = ""
var GitDirty string = "0"

func toolGitDirty() (dirty bool) {
	dirtyLines, err := strconv.Atoi(strings.TrimSpace(GitDirty))
	return err == nil && dirtyLines != 0
}

func toolVersion() string {
	dirty := ""
	if toolGitDirty() {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (git_sha1:%s%s)", toolName, GitSHA1, dirty)
}
