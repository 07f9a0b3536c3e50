package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/titledoc/binding"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置不应报错: %v", err)
	}
	if cfg.Metadata.Title != DefaultTitle || cfg.Metadata.Author != DefaultAuthor || cfg.Metadata.Creator != DefaultCreator {
		t.Fatalf("默认元信息错误: %+v", cfg.Metadata)
	}
	q := cfg.QROptions()
	if !q.Enabled || math.Abs(q.Size-64.8) > 1e-9 {
		t.Fatalf("默认应启用 0.9in 二维码: %+v", q)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titledoc.toml")
	content := `
[qr]
enabled = false
size = "1in"
margin_x = 90

[metadata]
title = "Title ${/Title/Number}"
keywords = ["land", "${/Title/Missing}"]

[fonts.Body]
builtin = "Times-Roman"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("读取配置失败: %v", err)
	}

	q := cfg.QROptions()
	if q.Enabled || q.Size != 72 || q.MarginX != 90 || math.Abs(q.MarginY-43.2) > 1e-9 {
		t.Fatalf("二维码配置错误: %+v", q)
	}
	// 未配置的元信息保留默认值。
	if cfg.Metadata.Author != DefaultAuthor {
		t.Fatalf("未配置的作者应保留默认值: %q", cfg.Metadata.Author)
	}

	doc, err := binding.FromXML(strings.NewReader("<Title><Number>0012345</Number></Title>"))
	if err != nil {
		t.Fatalf("解析 XML 失败: %v", err)
	}
	meta := cfg.Meta(doc, "abc")
	if meta.Title != "Title 0012345" || meta.DocumentID != "abc" {
		t.Fatalf("元信息插值错误: %+v", meta)
	}
	if len(meta.Keywords) != 1 || meta.Keywords[0] != "land" {
		t.Fatalf("空关键字应被丢弃: %q", meta.Keywords)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("构造字体注册表失败: %v", err)
	}
	if name, ok := reg.Resolve("Body"); !ok || name != "Times-Roman" {
		t.Fatalf("别名解析错误: %s %v", name, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("缺失的配置文件应报错")
	}
	cfg := Default()
	if err := Decode([]byte("[qr]\nsize = \"12furlongs\""), cfg); err == nil {
		t.Fatalf("无法识别的单位应报错")
	}
	cfg = Default()
	if err := Decode([]byte("[fonts.Body]\nbuiltin = \"Comic-Sans\""), cfg); err != nil {
		t.Fatalf("解析阶段不校验字体: %v", err)
	}
	if _, err := cfg.Registry(); err == nil {
		t.Fatalf("未知内置字体应报错")
	}
}

func TestMetaWithoutSource(t *testing.T) {
	meta := Default().Meta(nil, "")
	if meta.Title != DefaultTitle || meta.Creator != DefaultCreator || meta.DocumentID != "" {
		t.Fatalf("无数据源时应原样使用元信息: %+v", meta)
	}
}
