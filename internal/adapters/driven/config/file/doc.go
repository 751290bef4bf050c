// Package file keeps doclens configuration on disk under the config
// directory (~/.doclens by default): settings in config.toml and editable
// summariser prompts under prompts/.
package file
