package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/anigallery/internal/config"
	"github.com/John-Robertt/anigallery/internal/gallery"
)

type fetchArgs struct {
	config.CLIArgs
}

// flagValue 解析 "--name value" 与 "--name=value" 两种写法；ok=false 表示 a 不是该参数。
func flagValue(args []string, i *int, name string) (val string, ok bool, err error) {
	a := args[*i]
	switch {
	case a == name:
		if *i+1 >= len(args) {
			return "", true, fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], true, nil
	case strings.HasPrefix(a, name+"="):
		return strings.TrimPrefix(a, name+"="), true, nil
	default:
		return "", false, nil
	}
}

func nonNegInt(name, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s 需要整数，实际是 %q", name, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s 不能为负数，实际是 %d", name, n)
	}
	return n, nil
}

func parseFetchArgs(args []string) (fetchArgs, error) {
	fa := fetchArgs{}

	for i := 0; i < len(args); i++ {
		if v, ok, err := flagValue(args, &i, "--config"); ok {
			if err != nil {
				return fetchArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return fetchArgs{}, fmt.Errorf("--config 不能为空")
			}
			fa.ConfigFile = v
			continue
		}
		if v, ok, err := flagValue(args, &i, "--sink"); ok {
			if err != nil {
				return fetchArgs{}, err
			}
			switch v {
			case config.SinkDir, config.SinkMemory, config.SinkGCS, config.SinkRedis:
			case "":
				return fetchArgs{}, fmt.Errorf("--sink 不能为空")
			default:
				return fetchArgs{}, fmt.Errorf("--sink 只能是 dir/memory/gcs/redis，实际是 %q", v)
			}
			fa.Sink, fa.SinkSet = v, true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--max-pages"); ok {
			if err != nil {
				return fetchArgs{}, err
			}
			n, err := nonNegInt("--max-pages", v)
			if err != nil {
				return fetchArgs{}, err
			}
			fa.MaxPages, fa.MaxPagesSet = n, true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--trailer-pages"); ok {
			if err != nil {
				return fetchArgs{}, err
			}
			n, err := nonNegInt("--trailer-pages", v)
			if err != nil {
				return fetchArgs{}, err
			}
			fa.TrailerPages, fa.TrailerPagesSet = n, true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--delay"); ok {
			if err != nil {
				return fetchArgs{}, err
			}
			d, err := config.ParseDelay(v)
			if err != nil {
				return fetchArgs{}, fmt.Errorf("--delay 无效：%q", v)
			}
			if d < 0 {
				return fetchArgs{}, fmt.Errorf("--delay 不能为负数，实际是 %s", d)
			}
			fa.Delay, fa.DelaySet = d, true
			continue
		}

		a := args[i]
		if strings.HasPrefix(a, "-") {
			return fetchArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if fa.Path != "" {
			return fetchArgs{}, fmt.Errorf("重复的 path：%q 与 %q", fa.Path, a)
		}
		fa.Path = a
	}
	return fa, nil
}

type galleryArgs struct {
	Dir    string
	Kind   string
	Key    string
	KeySet bool
	Random int
}

// parseGalleryArgs 解析 stats/categories/trailers 的公共参数；allowed 限定可用的 flag。
func parseGalleryArgs(args []string, allowed ...string) (galleryArgs, error) {
	ga := galleryArgs{}
	allow := map[string]bool{}
	for _, a := range allowed {
		allow[a] = true
	}

	for i := 0; i < len(args); i++ {
		matched := false
		for _, name := range []string{"--kind", "--key", "--random"} {
			if !allow[name] {
				continue
			}
			v, ok, err := flagValue(args, &i, name)
			if !ok {
				continue
			}
			if err != nil {
				return galleryArgs{}, err
			}
			matched = true
			switch name {
			case "--kind":
				ga.Kind = v
			case "--key":
				ga.Key, ga.KeySet = v, true
			case "--random":
				n, err := nonNegInt("--random", v)
				if err != nil {
					return galleryArgs{}, err
				}
				ga.Random = n
			}
			break
		}
		if matched {
			continue
		}

		a := args[i]
		if strings.HasPrefix(a, "-") {
			return galleryArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if ga.Dir != "" {
			return galleryArgs{}, fmt.Errorf("重复的 dir：%q 与 %q", ga.Dir, a)
		}
		ga.Dir = a
	}

	if ga.KeySet && ga.Kind == "" {
		return galleryArgs{}, fmt.Errorf("--key 需要同时指定 --kind")
	}
	if ga.Kind != "" && !isKind(ga.Kind) {
		return galleryArgs{}, fmt.Errorf("--kind 只能是 %s，实际是 %q", strings.Join(gallery.Kinds, "/"), ga.Kind)
	}
	return ga, nil
}

func isKind(k string) bool {
	for _, x := range gallery.Kinds {
		if x == k {
			return true
		}
	}
	return false
}

type checkArgs struct {
	Root  string
	Apply bool
}

func parseCheckArgs(args []string) (checkArgs, error) {
	ca := checkArgs{}
	for _, a := range args {
		switch {
		case a == "--apply":
			ca.Apply = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ca.Apply = true
			case "false":
				ca.Apply = false
			default:
				return checkArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
		case strings.HasPrefix(a, "-"):
			return checkArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Root != "" {
				return checkArgs{}, fmt.Errorf("重复的 root：%q 与 %q", ca.Root, a)
			}
			ca.Root = a
		}
	}
	return ca, nil
}
