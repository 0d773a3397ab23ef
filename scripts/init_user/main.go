package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/fineblog/internal/config"
	"github.com/fineblog/internal/db"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "sqlite database path")
	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "", "login password")
	roles := flag.String("roles", db.RoleAdmin, "comma separated roles (admin, author)")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		log.Fatal("密码不能为空: -password is required")
	}

	// 初始化数据库
	gdb, err := db.Init(*dbPath)
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	var roleList []string
	for _, role := range strings.Split(*roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roleList = append(roleList, role)
		}
	}

	// 检查是否已存在用户
	var count int64
	gdb.Model(&db.User{}).Where("username = ?", *username).Count(&count)
	if count > 0 {
		fmt.Printf("用户 %s 已存在，无需初始化\n", *username)
		return
	}

	if err := db.EnsureUser(gdb, *username, *password, roleList...); err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("用户创建成功")
	fmt.Println("用户名:", *username)
	fmt.Println("角色:", strings.Join(roleList, ","))
}
