package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 阶段选用 nls-aggregate（无必选项，本地调试友好）；
// - 默认输入为当前目录，Writer 输出到 ./out 目录；
// - 组件名采用仓库内置实现；
// - 选项给出安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:      []string{"."},
		Concurrency: d.Concurrency,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader: d.Components.Reader,
			Stage:  "nls-aggregate",
			Writer: d.Components.Writer,
		},
	}
	// Options：包含所有键（值可为空/默认），确保键存在。
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor", "out"],
  "include_exts": [".json", ".xlf"]
}`)
	// nls-aggregate 当前无配置项，保持空对象。
	// 其余阶段的选项键形态：
	//   metadata-bundle: {"id":"","out_dir":""}
	//   i18n-resolve:    {"languages":[{"id":"","folder_name":""}],"base_i18n_dir":"","base_dir":""}
	//   xlf-export:      {"project_name":"","extension_id":"","language":""}
	//   xlf-import:      {"languages":[{"id":"","folder_name":""}],"prolog":[],"force_language":true}
	cfg.Options.Stage = json.RawMessage(`{}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
